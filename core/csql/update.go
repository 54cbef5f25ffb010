package csql

import (
	"fmt"
	"sort"

	"github.com/travelwhiz/backend/core"
)

// PartialUpdate maps a sparse set of JSON fields to the SET fragment of a
// parameterized UPDATE statement. Every field becomes one assignment clause
// with a 1-indexed placeholder, and the matching value is appended to the
// returned values list. The caller appends its own parameters, typically the
// row identifier, after the values and must offset its placeholders by
// len(values).
//
// Field names are translated to column names through translation; a name
// without an entry is used as column name directly. This supports
// camelCase-to-snake_case renaming without listing every field:
//
//	PartialUpdate(fields, map[string]string{"firstName": "first_name"})
//
// Go maps have no iteration order, so fields are processed in sorted name
// order. A given field set therefore always produces the same statement.
//
// An empty field set is not a well-formed update and fails with
// core.ErrBadRequest.
func PartialUpdate(fields map[string]interface{}, translation map[string]string) ([]string, []interface{}, error) {
	if len(fields) == 0 {
		return nil, nil, core.BadRequestf("no fields to update")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names))
	values := make([]interface{}, 0, len(names))
	for i, name := range names {
		column, ok := translation[name]
		if !ok {
			column = name
		}
		setClauses = append(setClauses, fmt.Sprintf("\"%s\"=$%d", column, i+1))
		values = append(values, fields[name])
	}
	return setClauses, values, nil
}
