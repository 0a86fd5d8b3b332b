package gmail

import "strings"

// BuildQuery returns the Gmail search query for messages with attachments
// received within the date window. Dates are passed through verbatim, so
// after:/before: keep Gmail's own bound semantics. extra is appended as is.
func BuildQuery(start, end, extra string) string {
	q := "after:" + start + " before:" + end + " has:attachment"
	if extra = strings.TrimSpace(extra); extra != "" {
		q += " " + extra
	}
	return q
}
