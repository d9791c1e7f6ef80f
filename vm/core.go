package vm

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/variant"
)

// CoreLibrary is the name of the library every runtime starts with.
const CoreLibrary = "core"

// registerCore installs the core library functions into r.
func registerCore(r *Runtime) {
	out := r.engine.params.Output
	lib := r.Library(CoreLibrary)

	lib.RegisterFunction(engine.Public, "write {text}", func(v variant.Variant) error {
		_, err := io.WriteString(out, v.AsString())
		return err
	})
	lib.RegisterFunction(engine.Public, "write line {text}", func(v variant.Variant) error {
		_, err := io.WriteString(out, v.AsString()+"\n")
		return err
	})
	lib.RegisterFunction(engine.Public, "size of {value} {}", sizeOf)
	lib.RegisterFunction(engine.Public, "string of {value} {}", func(v variant.Variant) string {
		return v.AsString()
	})
	lib.RegisterFunction(engine.Public, "integer of {value} {}", func(v variant.Variant) (int64, error) {
		i, ok := v.AsInteger()
		if !ok {
			return 0, fmt.Errorf("cannot convert %s %q to an integer", v.Kind(), v.String())
		}
		return i, nil
	})
	lib.RegisterFunction(engine.Public, "type of {value} {}", func(v variant.Variant) string {
		return v.Kind().String()
	})
}

func sizeOf(v variant.Variant) (int64, error) {
	switch {
	case v.IsString():
		return int64(utf8.RuneCountInString(v.AsString())), nil
	case v.IsCollection():
		return int64(v.AsCollection().Len()), nil
	}
	return 0, fmt.Errorf("%s has no size", v.Kind())
}
