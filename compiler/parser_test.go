package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/quill/pkg/variant"
)

var testScope = MapScope{
	"core": {
		"write {text}",
		"write line {text}",
		"size of {value} {}",
		"string of {value} {}",
	},
	"host": {
		"say hello",
		"say {name}",
		"add {a} to {b} {}",
	},
}

func parse(t *testing.T, src string, libs ...string) *Program {
	t.Helper()
	prog, err := Parse(src, testScope, libs)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return prog
}

func parseErr(t *testing.T, src string, libs ...string) ErrorList {
	t.Helper()
	_, err := Parse(src, testScope, libs)
	if err == nil {
		t.Fatalf("Parse(%q) succeeded, want error", src)
	}
	list, ok := err.(ErrorList)
	if !ok {
		t.Fatalf("error type = %T, want ErrorList", err)
	}
	return list
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  variant.Variant
	}{
		{"42", variant.Int(42)},
		{"-5", variant.Int(-5)},
		{"3.5", variant.Float(3.5)},
		{`"hello"`, variant.Str("hello")},
		{"true", variant.Bool(true)},
		{"false", variant.Bool(false)},
		{"null", variant.NullValue()},
	}

	for _, tc := range tests {
		p := NewParser(tc.input, nil)
		expr := p.ParseExpression()
		if len(p.Errors()) > 0 {
			t.Errorf("%q: parse errors: %v", tc.input, p.Errors())
			continue
		}
		lit, ok := expr.(*Literal)
		if !ok {
			t.Errorf("%q: got %T, want *Literal", tc.input, expr)
			continue
		}
		if lit.Value.Kind() != tc.want.Kind() || !lit.Value.Equal(tc.want) {
			t.Errorf("%q: value = %v, want %v", tc.input, lit.Value, tc.want)
		}
	}
}

func TestParserPrecedence(t *testing.T) {
	p := NewParser("1 + 2 * 3 = 7 and not false", nil)
	expr := p.ParseExpression()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	and, ok := expr.(*LogicalExpr)
	if !ok || !and.And {
		t.Fatalf("top = %T, want and-expression", expr)
	}
	cmp, ok := and.Left.(*BinaryExpr)
	if !ok || cmp.Op != TokenEq {
		t.Fatalf("left = %T, want = comparison", and.Left)
	}
	sum, ok := cmp.Left.(*BinaryExpr)
	if !ok || sum.Op != TokenPlus {
		t.Fatalf("comparison left = %T, want +", cmp.Left)
	}
	if mul, ok := sum.Right.(*BinaryExpr); !ok || mul.Op != TokenStar {
		t.Errorf("sum right = %T, want *", sum.Right)
	}
	if _, ok := and.Right.(*UnaryExpr); !ok {
		t.Errorf("right = %T, want not-expression", and.Right)
	}
}

func TestParserListAndIndex(t *testing.T) {
	prog := parse(t, "set xs to [1, 2, 3]\nset y to xs[2]\nset xs[1] to 10\n")
	if len(prog.Main) != 3 {
		t.Fatalf("got %d statements, want 3", len(prog.Main))
	}
	first := prog.Main[0].(*SetStmt)
	if list, ok := first.Value.(*ListExpr); !ok || len(list.Elems) != 3 {
		t.Errorf("first value = %T, want 3-element list", first.Value)
	}
	second := prog.Main[1].(*SetStmt)
	if _, ok := second.Value.(*IndexExpr); !ok {
		t.Errorf("second value = %T, want *IndexExpr", second.Value)
	}
	third := prog.Main[2].(*SetStmt)
	if third.Index == nil || !third.Target.Global || third.Target.Name != "xs" {
		t.Errorf("third = %+v, want indexed store to global xs", third)
	}
}

func TestParserCallsResolveBySignature(t *testing.T) {
	prog := parse(t, `say hello
say "world"
set n to add 1 to 2
write string of n
`, "core", "host")

	if len(prog.Main) != 4 {
		t.Fatalf("got %d statements, want 4", len(prog.Main))
	}

	hello := prog.Main[0].(*ExprStmt).Call
	if hello.Target.Sig.Key() != "say hello" || len(hello.Args) != 0 {
		t.Errorf("stmt 0 call = %q with %d args", hello.Target.Sig.Key(), len(hello.Args))
	}
	say := prog.Main[1].(*ExprStmt).Call
	if say.Target.Sig.Key() != "say {_}" || say.Target.Library != "host" {
		t.Errorf("stmt 1 call = %q in %q", say.Target.Sig.Key(), say.Target.Library)
	}
	add := prog.Main[2].(*SetStmt).Value.(*CallExpr)
	if add.Target.Sig.Key() != "add {_} to {_} {}" || len(add.Args) != 2 {
		t.Errorf("stmt 2 call = %q with %d args", add.Target.Sig.Key(), len(add.Args))
	}
	write := prog.Main[3].(*ExprStmt).Call
	if _, ok := write.Args[0].(*CallExpr); !ok {
		t.Errorf("write argument = %T, want nested call", write.Args[0])
	}
}

func TestParserLongestMatchWins(t *testing.T) {
	prog := parse(t, "write line \"x\"\n", "core")
	call := prog.Main[0].(*ExprStmt).Call
	if got := call.Target.Sig.Key(); got != "write line {_}" {
		t.Errorf("matched %q, want %q", got, "write line {_}")
	}
}

func TestParserImportAndLibraryOrder(t *testing.T) {
	prog := parse(t, "import host\nsay hello\n", "core")
	want := []string{"core", "host"}
	if strings.Join(prog.Libraries, ",") != strings.Join(want, ",") {
		t.Errorf("Libraries = %v, want %v", prog.Libraries, want)
	}
}

func TestParserUnknownLibrary(t *testing.T) {
	errs := parseErr(t, "import nowhere\n")
	if !strings.Contains(errs[0].Msg, `unknown library "nowhere"`) {
		t.Errorf("error = %q", errs[0].Msg)
	}
}

func TestParserFunctions(t *testing.T) {
	prog := parse(t, `greet "bob"
function greet {name}
    set msg to name
    write msg
end
private function twice {x} {}
    return x * 2
end
`, "core")

	if len(prog.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(prog.Functions))
	}
	greet := prog.Functions[0]
	if greet.Callable.Private {
		t.Error("greet is private, want public")
	}
	if strings.Join(greet.Locals, ",") != "name,msg" {
		t.Errorf("greet locals = %v, want [name msg]", greet.Locals)
	}
	twice := prog.Functions[1]
	if !twice.Callable.Private || !twice.Callable.Sig.Returns {
		t.Errorf("twice = %+v, want private returning function", twice.Callable)
	}
	call := prog.Main[0].(*ExprStmt).Call
	if call.Target != greet.Callable {
		t.Error("call before definition did not resolve to greet")
	}
}

func TestParserElseIf(t *testing.T) {
	prog := parse(t, `set x to 2
if x = 1
    set y to 1
else if x = 2
    set y to 2
else
    set y to 3
end
`)
	stmt := prog.Main[1].(*IfStmt)
	nested, ok := stmt.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("else branch = %T, want nested if", stmt.Else[0])
	}
	if len(nested.Else) != 1 {
		t.Errorf("nested else has %d statements, want 1", len(nested.Else))
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown identifier", "set x to y\n", `unknown identifier "y"`},
		{"non-call statement", "set x to 1\nx\n", "unknown statement"},
		{"missing end", "if true\nset x to 1\n", `expected "end"`},
		{"trailing tokens", "set x to 1 2\n", "at end of statement"},
		{"void call as value", "set x to say hello\n", "does not return a value"},
		{"return value from script", "return 5\n", "cannot return a value"},
		{"return value from void function", "function f\nreturn 1\nend\n", "does not return a value"},
		{"duplicate function", "function f {a}\nend\nfunction f {b} {}\nend\n", "already defined"},
		{"nested function", "if true\nfunction f\nend\nend\n", "top level"},
		{"external in function", "function f\nexternal x\nend\n", "top level"},
		{"globals not visible in functions", "set g to 1\nfunction f\nset x to g\nend\n", `unknown identifier "g"`},
		{"stray end", "end\n", `unexpected "end"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := parseErr(t, tc.src, "core", "host")
			found := false
			for _, e := range errs {
				if strings.Contains(e.Msg, tc.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want one containing %q", errs.Messages(), tc.want)
			}
		})
	}
}

func TestParserErrorPositions(t *testing.T) {
	errs := parseErr(t, "set a to 1\nset b to nope\n")
	if errs[0].Pos.Line != 2 || errs[0].Pos.Column != 10 {
		t.Errorf("error at %v, want 2:10", errs[0].Pos)
	}
}

func TestParserExternals(t *testing.T) {
	prog := parse(t, "external score\nset score to score + 1\n")
	if len(prog.Externals) != 1 || prog.Externals[0] != "score" {
		t.Errorf("Externals = %v, want [score]", prog.Externals)
	}
}

func TestParserAmbiguousCall(t *testing.T) {
	scope := MapScope{
		"a": {"ping {x}"},
		"b": {"ping {y}"},
	}
	_, err := Parse("ping 1\n", scope, []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("error = %v, want ambiguous call", err)
	}
}
