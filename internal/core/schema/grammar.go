package schema

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// schemaLexer tokenizes the Prisma schema subset the engine understands.
var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `\b(model|enum|datasource|generator)\b`},

	// Block attribute prefix must come before the single @.
	{Name: "BlockAttr", Pattern: `@@`},
	{Name: "FieldAttr", Pattern: `@`},

	{Name: "Punct", Pattern: `[{}()\[\]:,.=?]`},

	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_-]*`},

	{Name: "DocComment", Pattern: `///[^\n]*`},
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "MultiLineComment", Pattern: `/\*(?:[^*]|\*[^/])*\*/`},

	{Name: "Newline", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var schemaParser = participle.MustBuild[fileNode](
	participle.Lexer(schemaLexer),
	participle.Elide("Whitespace", "Newline", "Comment", "DocComment", "MultiLineComment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

type fileNode struct {
	Blocks []*blockNode `@@*`
}

type blockNode struct {
	Model  *modelNode  `  @@`
	Enum   *enumNode   `| @@`
	Config *configNode `| @@`
}

type modelNode struct {
	Pos     lexer.Position
	Name    string        `"model" @Ident "{"`
	Members []*memberNode `@@* "}"`
}

type memberNode struct {
	Attribute *attributeNode `  "@@" @@`
	Field     *fieldNode     `| @@`
}

type fieldNode struct {
	Pos        lexer.Position
	Name       string           `@(Ident | Keyword)`
	Type       string           `@Ident`
	List       bool             `@("[" "]")?`
	Optional   bool             `@"?"?`
	Attributes []*attributeNode `("@" @@)*`
}

type attributeNode struct {
	Pos  lexer.Position
	Name string          `@Ident (@"." @Ident)*`
	Args []*argumentNode `("(" (@@ ("," @@)*)? ")")?`
}

type argumentNode struct {
	Name  string    `(@Ident ":")?`
	Value *exprNode `@@`
}

type exprNode struct {
	Call   *callNode  `  @@`
	Array  *arrayNode `| @@`
	String *string    `| @String`
	Number *string    `| @Number`
	Ident  *string    `| @Ident`
}

type callNode struct {
	Name string          `@Ident "("`
	Args []*argumentNode `(@@ ("," @@)*)? ")"`
}

type arrayNode struct {
	Open     bool        `@"["`
	Elements []*exprNode `(@@ ("," @@)*)? "]"`
}

type enumNode struct {
	Pos    lexer.Position
	Name   string           `"enum" @Ident "{"`
	Values []*enumValueNode `@@*`
	Attrs  []*attributeNode `("@@" @@)* "}"`
}

type enumValueNode struct {
	Name       string           `@Ident`
	Attributes []*attributeNode `("@" @@)*`
}

type configNode struct {
	Kind       string          `@("datasource" | "generator")`
	Name       string          `@Ident "{"`
	Properties []*propertyNode `@@* "}"`
}

type propertyNode struct {
	Name  string    `@Ident "="`
	Value *exprNode `@@`
}
