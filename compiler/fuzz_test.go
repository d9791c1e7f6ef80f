package compiler

import (
	"testing"
)

var fuzzScope = MapScope{
	"core": {"write {text}", "write line {text}", "size of {value} {}"},
	"host": {"say hello", "say {text}", "add {a} to {b} {}"},
}

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics and always terminates.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	seeds := []string{
		// Punctuation and operators
		`( ) [ ] { } , + - * / % = != < <= > >= & ?`,
		// Numbers
		`42`, `0`, `3.14`, `1e10`, `1.5e-3`, `2.0E+5`, `1.`, `1e`,
		// Strings
		`"hello"`, `""`, `"tab\tquote\"end"`, `"unterminated`, "\"line\nbreak\"",
		// Words and keywords
		`foo`, `set x to 1`, `function f {a} {}`, `not true and false or null`,
		// Comments
		"-- comment\nsay hello", "say hello -- trailing",
		// Line endings
		"a\r\nb", "\r", "\n\n\n",
		// Unicode
		`"こんにちは"`, `café`, `naïve`,
		// Garbage
		`!`, `@#$`, "\x00", ``, `   `,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked on input %q: %v", data, r)
			}
		}()

		l := NewLexer(data)
		for i := 0; i < len(data)+100; i++ {
			if tok := l.NextToken(); tok.Type == TokenEOF {
				return
			}
		}
		t.Fatalf("lexer did not reach EOF on input %q", data)
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: arbitrary scripts through parse and codegen. Compile errors
// are fine; panics and units with errors are not.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		"say hello\n",
		"set x to [1, 2, 3]\nset x[2] to x[1] + 1\n",
		"function fib {n} {}\n    if n < 2\n        return n\n    end\n    return (fib n - 1) + (fib n - 2)\nend\nwrite fib 10\n",
		"import host\nsay add 1 to 2\n",
		"library mine\nprivate function helper\nend\n",
		"loop while true\n    wait\nend\n",
		"if 1 = 1\nelse if 2\nelse\nend\n",
		"external x\nset y to not x or x and -x\n",
		// Malformed
		"function\n", "end\n", "set to\n", "if\n", "return 1\n", "[", "(((", "function f {}\nend\n",
		"set x[ to 1\n", "loop while\n", "say\n", "{x} y\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("compile panicked on input %q: %v", data, r)
			}
		}()

		unit, err := Compile(data, Options{
			Name:      "fuzz",
			Libraries: []string{"core", "host"},
			Scope:     fuzzScope,
			DebugInfo: true,
		})
		if err != nil {
			if unit != nil {
				t.Fatalf("Compile returned a unit and an error for %q", data)
			}
			if _, ok := err.(ErrorList); !ok {
				t.Fatalf("Compile error is %T, want ErrorList", err)
			}
			return
		}
		_ = unit.Disassemble()

		p := NewParser(data, fuzzScope)
		_ = p.ParseExpression()
		_ = p.Errors()
	})
}
