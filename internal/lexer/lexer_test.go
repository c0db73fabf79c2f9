package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tilldb/till-db/internal/lexer"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexer.Token
	}{
		{
			name:  "Create table",
			input: "CREATE TABLE foo (id INT, data TEXT)",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "CREATE"},
				{Type: lexer.KEYWORD, Literal: "TABLE"},
				{Type: lexer.IDENTIFIER, Literal: "foo"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.IDENTIFIER, Literal: "id"},
				{Type: lexer.KEYWORD, Literal: "INT"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.IDENTIFIER, Literal: "data"},
				{Type: lexer.KEYWORD, Literal: "TEXT"},
				{Type: lexer.RPAREN, Literal: ")"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
		{
			name:  "Create index with using clause",
			input: "CREATE INDEX fx ON foo (data) USING BTREE",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "CREATE"},
				{Type: lexer.KEYWORD, Literal: "INDEX"},
				{Type: lexer.IDENTIFIER, Literal: "fx"},
				{Type: lexer.KEYWORD, Literal: "ON"},
				{Type: lexer.IDENTIFIER, Literal: "foo"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.IDENTIFIER, Literal: "data"},
				{Type: lexer.RPAREN, Literal: ")"},
				{Type: lexer.KEYWORD, Literal: "USING"},
				{Type: lexer.IDENTIFIER, Literal: "BTREE"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
		{
			name:  "Drop index with dotted name",
			input: "DROP INDEX foo.fx",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "DROP"},
				{Type: lexer.KEYWORD, Literal: "INDEX"},
				{Type: lexer.IDENTIFIER, Literal: "foo"},
				{Type: lexer.DOT, Literal: "."},
				{Type: lexer.IDENTIFIER, Literal: "fx"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
		{
			name:  "Identifier with leading underscore",
			input: "SHOW COLUMNS FROM _tables",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SHOW"},
				{Type: lexer.KEYWORD, Literal: "COLUMNS"},
				{Type: lexer.KEYWORD, Literal: "FROM"},
				{Type: lexer.IDENTIFIER, Literal: "_tables"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
		{
			name:  "Keywords are case insensitive",
			input: "create table Foo (x int)",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "CREATE"},
				{Type: lexer.KEYWORD, Literal: "TABLE"},
				{Type: lexer.IDENTIFIER, Literal: "Foo"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.IDENTIFIER, Literal: "x"},
				{Type: lexer.KEYWORD, Literal: "INT"},
				{Type: lexer.RPAREN, Literal: ")"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
		{
			name:  "Strings and numbers",
			input: "INSERT INTO foo VALUES (1, 'hello')",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "INSERT"},
				{Type: lexer.KEYWORD, Literal: "INTO"},
				{Type: lexer.IDENTIFIER, Literal: "foo"},
				{Type: lexer.KEYWORD, Literal: "VALUES"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.NUMBER, Literal: "1"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.STRING, Literal: "hello"},
				{Type: lexer.RPAREN, Literal: ")"},
				{Type: lexer.EOF, Literal: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lexer.New(tt.input)
			for i, expected := range tt.expected {
				got := l.NextToken()
				assert.Equal(t, expected, got, "token %d", i)
			}
		})
	}
}
