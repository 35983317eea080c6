package core

import "sort"

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// ValidateHeaders enforces the column contract of def against the normalized
// header row. Any header outside the allowed set, any missing required
// column, or any repeated column fails the whole file. Blank header cells
// are ignored.
func ValidateHeaders(def ImportDefinition, headers []string) (HeaderIndex, error) {
	allowed := make(map[string]bool, len(def.Columns))
	names := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		allowed[c.Name] = true
		names = append(names, c.Name)
	}

	idx := make(HeaderIndex, len(headers))
	schemaErr := &SchemaError{ImportType: def.Info.Key}
	seenDup := map[string]bool{}

	for i, h := range headers {
		if h == "" {
			continue
		}
		if !allowed[h] {
			schemaErr.Unknown = append(schemaErr.Unknown, h)
			if s, ok := suggestColumn(h, names); ok {
				if schemaErr.Suggestions == nil {
					schemaErr.Suggestions = map[string]string{}
				}
				schemaErr.Suggestions[h] = s
			}
			continue
		}
		if _, dup := idx[h]; dup {
			if !seenDup[h] {
				schemaErr.Duplicate = append(schemaErr.Duplicate, h)
				seenDup[h] = true
			}
			continue
		}
		idx[h] = i
	}

	for _, c := range def.Columns {
		if _, ok := idx[c.Name]; c.Required && !ok {
			schemaErr.Missing = append(schemaErr.Missing, c.Name)
		}
	}

	if len(schemaErr.Unknown)+len(schemaErr.Missing)+len(schemaErr.Duplicate) > 0 {
		sort.Strings(schemaErr.Unknown)
		return nil, schemaErr
	}
	return idx, nil
}

// rawRow extracts the cells of the allowed columns by header position.
func rawRow(idx HeaderIndex, row SheetRow) map[string]string {
	raw := make(map[string]string, len(idx))
	for name, pos := range idx {
		raw[name] = row.Value(pos)
	}
	return raw
}
