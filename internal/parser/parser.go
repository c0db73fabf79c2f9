package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tilldb/till-db/internal/lexer"
)

// Statement is the interface implemented by every parsed SQL statement.
type Statement interface {
	statementNode()
}

// ColumnDefinition represents one column in a CREATE TABLE statement
type ColumnDefinition struct {
	Name string
	Type string
}

// CreateTableStatement represents a CREATE TABLE SQL statement
type CreateTableStatement struct {
	Table       string
	Columns     []ColumnDefinition
	IfNotExists bool
}

// CreateIndexStatement represents a CREATE INDEX SQL statement
type CreateIndexStatement struct {
	Table     string
	Index     string
	Columns   []string
	IndexType string
}

// DropTableStatement represents a DROP TABLE SQL statement
type DropTableStatement struct {
	Table string
}

// DropIndexStatement represents a DROP INDEX SQL statement
type DropIndexStatement struct {
	Table string
	Index string
}

// ShowKind identifies the SHOW statement variant
type ShowKind int

const (
	// ShowTables lists user tables
	ShowTables ShowKind = iota
	// ShowColumns lists the columns of one table
	ShowColumns
	// ShowIndex lists the index entries of one table
	ShowIndex
)

// ShowStatement represents a SHOW SQL statement
type ShowStatement struct {
	Kind  ShowKind
	Table string
}

// SelectStatement represents a SELECT SQL statement
type SelectStatement struct {
	Table   string
	Columns []string
	Where   map[string]interface{}
}

// InsertStatement represents an INSERT SQL statement
type InsertStatement struct {
	Table  string
	Values []interface{}
}

// UpdateStatement represents an UPDATE SQL statement
type UpdateStatement struct {
	Table string
	Set   map[string]interface{}
	Where map[string]interface{}
}

// DeleteStatement represents a DELETE SQL statement
type DeleteStatement struct {
	Table string
	Where map[string]interface{}
}

func (*CreateTableStatement) statementNode() {}
func (*CreateIndexStatement) statementNode() {}
func (*DropTableStatement) statementNode()   {}
func (*DropIndexStatement) statementNode()   {}
func (*ShowStatement) statementNode()        {}
func (*SelectStatement) statementNode()      {}
func (*InsertStatement) statementNode()      {}
func (*UpdateStatement) statementNode()      {}
func (*DeleteStatement) statementNode()      {}

// Parser represents a SQL parser
type Parser struct {
	l *lexer.Lexer
}

// New creates a new parser with the given lexer
func New(l *lexer.Lexer) *Parser {
	return &Parser{l: l}
}

// Parse parses the input SQL statement
func (p *Parser) Parse() (Statement, error) {
	tok := p.l.NextToken()
	if tok.Type == lexer.EOF {
		return nil, fmt.Errorf("empty statement")
	}

	switch tok.Literal {
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "SHOW":
		return p.parseShow()
	case "SELECT":
		return p.parseSelect()
	case "INSERT":
		return p.parseInsert()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", tok.Literal)
	}
}

func (p *Parser) parseCreate() (Statement, error) {
	tok := p.l.NextToken()
	switch tok.Literal {
	case "TABLE":
		return p.parseCreateTable()
	case "INDEX":
		return p.parseCreateIndex()
	default:
		return nil, fmt.Errorf("expected TABLE or INDEX, got %s", tok.Literal)
	}
}

func (p *Parser) parseCreateTable() (*CreateTableStatement, error) {
	stmt := &CreateTableStatement{}

	tok := p.l.NextToken()
	if tok.Literal == "IF" {
		if tok = p.l.NextToken(); tok.Literal != "NOT" {
			return nil, fmt.Errorf("expected NOT, got %s", tok.Literal)
		}
		if tok = p.l.NextToken(); tok.Literal != "EXISTS" {
			return nil, fmt.Errorf("expected EXISTS, got %s", tok.Literal)
		}
		stmt.IfNotExists = true
		tok = p.l.NextToken()
	}

	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Type != lexer.LPAREN {
		return nil, fmt.Errorf("expected (, got %s", tok.Literal)
	}

	for {
		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}

		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected column name, got %s", tok.Literal)
		}
		colName := tok.Literal

		tok = p.l.NextToken()
		// Column types arrive as keywords (INT, TEXT) or identifiers (REAL);
		// type validation is the executor's job.
		if tok.Type != lexer.IDENTIFIER && tok.Type != lexer.KEYWORD {
			return nil, fmt.Errorf("expected column type, got %s", tok.Literal)
		}
		stmt.Columns = append(stmt.Columns, ColumnDefinition{
			Name: colName,
			Type: strings.ToUpper(tok.Literal),
		})

		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}
		if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or ), got %s", tok.Literal)
		}
	}

	if len(stmt.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", stmt.Table)
	}

	return stmt, nil
}

func (p *Parser) parseCreateIndex() (*CreateIndexStatement, error) {
	stmt := &CreateIndexStatement{IndexType: "BTREE"}

	tok := p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected index name, got %s", tok.Literal)
	}
	stmt.Index = tok.Literal

	tok = p.l.NextToken()
	if tok.Literal != "ON" {
		return nil, fmt.Errorf("expected ON, got %s", tok.Literal)
	}

	tok = p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Type != lexer.LPAREN {
		return nil, fmt.Errorf("expected (, got %s", tok.Literal)
	}

	for {
		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}
		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected column name, got %s", tok.Literal)
		}
		stmt.Columns = append(stmt.Columns, tok.Literal)

		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}
		if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or ), got %s", tok.Literal)
		}
	}

	if len(stmt.Columns) == 0 {
		return nil, fmt.Errorf("index %s has no columns", stmt.Index)
	}

	tok = p.l.NextToken()
	if tok.Literal == "USING" {
		tok = p.l.NextToken()
		if tok.Type != lexer.IDENTIFIER && tok.Type != lexer.KEYWORD {
			return nil, fmt.Errorf("expected index type, got %s", tok.Literal)
		}
		stmt.IndexType = strings.ToUpper(tok.Literal)
	}

	return stmt, nil
}

func (p *Parser) parseDrop() (Statement, error) {
	tok := p.l.NextToken()
	switch tok.Literal {
	case "TABLE":
		return p.parseDropTable()
	case "INDEX":
		return p.parseDropIndex()
	default:
		return nil, fmt.Errorf("expected TABLE or INDEX, got %s", tok.Literal)
	}
}

func (p *Parser) parseDropTable() (*DropTableStatement, error) {
	tok := p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	return &DropTableStatement{Table: tok.Literal}, nil
}

// parseDropIndex accepts both "DROP INDEX t.i" and "DROP INDEX i ON t".
func (p *Parser) parseDropIndex() (*DropIndexStatement, error) {
	tok := p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected index or table name, got %s", tok.Literal)
	}
	first := tok.Literal

	tok = p.l.NextToken()
	switch {
	case tok.Type == lexer.DOT:
		tok = p.l.NextToken()
		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected index name, got %s", tok.Literal)
		}
		return &DropIndexStatement{Table: first, Index: tok.Literal}, nil
	case tok.Literal == "ON":
		tok = p.l.NextToken()
		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
		}
		return &DropIndexStatement{Table: tok.Literal, Index: first}, nil
	default:
		return nil, fmt.Errorf("expected . or ON, got %s", tok.Literal)
	}
}

func (p *Parser) parseShow() (*ShowStatement, error) {
	tok := p.l.NextToken()
	switch tok.Literal {
	case "TABLES":
		return &ShowStatement{Kind: ShowTables}, nil
	case "COLUMNS":
		table, err := p.parseFromTable()
		if err != nil {
			return nil, err
		}
		return &ShowStatement{Kind: ShowColumns, Table: table}, nil
	case "INDEX":
		table, err := p.parseFromTable()
		if err != nil {
			return nil, err
		}
		return &ShowStatement{Kind: ShowIndex, Table: table}, nil
	default:
		return nil, fmt.Errorf("expected TABLES, COLUMNS or INDEX, got %s", tok.Literal)
	}
}

func (p *Parser) parseFromTable() (string, error) {
	tok := p.l.NextToken()
	if tok.Literal != "FROM" {
		return "", fmt.Errorf("expected FROM, got %s", tok.Literal)
	}
	tok = p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return "", fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	return tok.Literal, nil
}

func (p *Parser) parseSelect() (*SelectStatement, error) {
	stmt := &SelectStatement{
		Columns: []string{},
	}

	for {
		tok := p.l.NextToken()
		if tok.Type == lexer.EOF {
			return nil, fmt.Errorf("unexpected EOF while parsing SELECT")
		}

		if tok.Type == lexer.ASTERISK {
			stmt.Columns = []string{"*"}
		} else if tok.Type == lexer.IDENTIFIER {
			stmt.Columns = append(stmt.Columns, tok.Literal)
		}

		tok = p.l.NextToken()
		if tok.Type == lexer.EOF {
			return nil, fmt.Errorf("unexpected EOF while parsing SELECT")
		}

		if tok.Literal == "FROM" {
			break
		} else if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or FROM, got %s", tok.Literal)
		}
	}

	tok := p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Type == lexer.EOF || tok.Type == lexer.SEMICOLON {
		return stmt, nil
	}

	if tok.Literal == "WHERE" {
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

func (p *Parser) parseInsert() (*InsertStatement, error) {
	stmt := &InsertStatement{}

	tok := p.l.NextToken()
	if tok.Literal != "INTO" {
		return nil, fmt.Errorf("expected INTO, got %s", tok.Literal)
	}

	tok = p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Literal != "VALUES" {
		return nil, fmt.Errorf("expected VALUES, got %s", tok.Literal)
	}

	tok = p.l.NextToken()
	if tok.Type != lexer.LPAREN {
		return nil, fmt.Errorf("expected (, got %s", tok.Literal)
	}

	for {
		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}

		val, err := literalValue(tok)
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, val)

		tok = p.l.NextToken()
		if tok.Type == lexer.RPAREN {
			break
		}
		if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or ), got %s", tok.Literal)
		}
	}

	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStatement, error) {
	stmt := &UpdateStatement{
		Set: make(map[string]interface{}),
	}

	tok := p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Literal != "SET" {
		return nil, fmt.Errorf("expected SET, got %s", tok.Literal)
	}

	for {
		tok = p.l.NextToken()
		if tok.Type == lexer.EOF {
			return stmt, nil
		}

		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected column name, got %s", tok.Literal)
		}
		col := tok.Literal

		tok = p.l.NextToken()
		if tok.Type != lexer.EQUALS {
			return nil, fmt.Errorf("expected =, got %s", tok.Literal)
		}

		tok = p.l.NextToken()
		val, err := literalValue(tok)
		if err != nil {
			return nil, err
		}
		stmt.Set[col] = val

		tok = p.l.NextToken()
		if tok.Type == lexer.EOF {
			return stmt, nil
		}
		if tok.Literal == "WHERE" {
			where, err := p.parseWhere()
			if err != nil {
				return nil, err
			}
			stmt.Where = where
			return stmt, nil
		}
		if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or WHERE, got %s", tok.Literal)
		}
	}
}

func (p *Parser) parseDelete() (*DeleteStatement, error) {
	stmt := &DeleteStatement{}

	tok := p.l.NextToken()
	if tok.Literal != "FROM" {
		return nil, fmt.Errorf("expected FROM, got %s", tok.Literal)
	}

	tok = p.l.NextToken()
	if tok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %s", tok.Literal)
	}
	stmt.Table = tok.Literal

	tok = p.l.NextToken()
	if tok.Literal == "WHERE" {
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

func (p *Parser) parseWhere() (map[string]interface{}, error) {
	where := make(map[string]interface{})
	for {
		tok := p.l.NextToken()
		if tok.Type == lexer.EOF || tok.Type == lexer.SEMICOLON {
			return where, nil
		}

		if tok.Type != lexer.IDENTIFIER {
			return nil, fmt.Errorf("expected column name, got %s", tok.Literal)
		}
		col := tok.Literal

		tok = p.l.NextToken()
		if tok.Type != lexer.EQUALS {
			return nil, fmt.Errorf("expected =, got %s", tok.Literal)
		}

		tok = p.l.NextToken()
		val, err := literalValue(tok)
		if err != nil {
			return nil, err
		}
		where[col] = val

		tok = p.l.NextToken()
		if tok.Type == lexer.EOF || tok.Type == lexer.SEMICOLON {
			return where, nil
		}
		if tok.Literal != "AND" {
			return nil, fmt.Errorf("expected AND, got %s", tok.Literal)
		}
	}
}

func literalValue(tok lexer.Token) (interface{}, error) {
	switch tok.Type {
	case lexer.NUMBER:
		val, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", tok.Literal)
		}
		return val, nil
	case lexer.STRING:
		return strings.Trim(tok.Literal, "'\""), nil
	default:
		return nil, fmt.Errorf("expected number or string, got %s", tok.Literal)
	}
}

// Parse parses an SQL statement and returns a Statement
func Parse(sql string) (Statement, error) {
	l := lexer.New(sql)
	p := New(l)
	return p.Parse()
}
