package executor

import (
	"strings"

	"github.com/tilldb/till-db/internal/types"
)

// QueryResult is the tabular response of one DDL statement. ColumnNames,
// ColumnAttributes and Rows are nil for message-only results.
type QueryResult struct {
	ColumnNames      types.ColumnNames
	ColumnAttributes types.ColumnAttributes
	Rows             []types.Row
	Message          string
}

// NewMessageResult builds a result carrying only a status message.
func NewMessageResult(message string) *QueryResult {
	return &QueryResult{Message: message}
}

// String renders the result for display: headers, a dashed separator, one
// line per row with values formatted per column attribute, then the message.
func (qr *QueryResult) String() string {
	var out strings.Builder

	if qr.ColumnNames != nil {
		for _, name := range qr.ColumnNames {
			out.WriteString(name)
			out.WriteString(" ")
		}
		out.WriteString("\n+")
		for range qr.ColumnNames {
			out.WriteString("----------+")
		}
		out.WriteString("\n")

		for _, row := range qr.Rows {
			for i, name := range qr.ColumnNames {
				out.WriteString(formatValue(row[name], qr.ColumnAttributes[i]))
				out.WriteString(" ")
			}
			out.WriteString("\n")
		}
	}

	out.WriteString(qr.Message)
	return out.String()
}

func formatValue(v types.Value, attr types.ColumnAttribute) string {
	switch attr.DataType {
	case types.IntType:
		return v.String()
	case types.TextType:
		return "\"" + v.String() + "\""
	case types.BooleanType:
		return v.String()
	default:
		return "???"
	}
}
