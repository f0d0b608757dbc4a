package apperror

import "fmt"

// ExactlyOne applies the uniqueness counting rule to the rows a lookup by
// name returned.
//
// Parameters:
//   - rows: The matching records.
//   - name: The looked-up name, used in messages.
//   - notFound: The code returned when rows is empty.
//   - nonUnique: The code returned when rows has several entries.
//   - idOf: Extracts the record id listed in a non-unique error's details.
//
// Returns:
//
//	The single row, or a domain error. A non-unique error lists every
//	conflicting id in Details.
func ExactlyOne[T any](rows []T, name string, notFound, nonUnique Code, idOf func(T) string) (T, error) {
	var zero T
	switch len(rows) {
	case 0:
		return zero, Newf(notFound, "%s '%s' not found", subject(notFound), name)
	case 1:
		return rows[0], nil
	default:
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, idOf(row))
		}
		return zero, WithDetails(nonUnique,
			fmt.Sprintf("Multiple %ss found for name '%s'", lowerSubject(nonUnique), name), ids)
	}
}

func subject(c Code) string {
	switch c {
	case CodeShowNotFound, CodeNonUniqueShow:
		return "Show"
	default:
		return "User"
	}
}

func lowerSubject(c Code) string {
	if subject(c) == "Show" {
		return "show"
	}
	return "user"
}
