// Package sandbox evaluates author-supplied, untrusted scripts used for flag
// validation, dynamic scoring, and template helpers.
//
// It wraps github.com/dop251/goja with no module loader, no filesystem or
// network bindings, and no timer-based side channels: import statements fail
// with a typed ScriptError, and every New call constructs a fresh
// interpreter so no state persists from one Sandbox to the next. This is the Go
// analogue of the original implementation's boa_engine sandbox (js.rs),
// which likewise disables its module loader and registers only crypto and
// console extensions.
package sandbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dop251/goja"
)

// ScriptError is returned for any uncaught script throw, unreturned callable,
// or wrong-type return value, per spec.md §4.A.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return "script error: " + e.Message }

// Sandbox is a single-use evaluator. Construct one per evaluation; never
// reuse across calls, so that no author script can observe state left behind
// by a previous invocation.
type Sandbox struct {
	vm *goja.Runtime
}

// New builds a fresh interpreter with import statements disabled and crypto
// helpers registered, but no filesystem, network, or module-loading
// capability exposed to the script.
func New() *Sandbox {
	vm := goja.New()
	vm.SetParserOptions() // defaults; no extra syntax extensions

	registerCrypto(vm)
	denyImports(vm)

	return &Sandbox{vm: vm}
}

// denyImports makes `import`/`require` fail with a ScriptError rather than
// silently resolving to undefined, mirroring js.rs's DummyLoader that
// rejects every load_imported_module call.
func denyImports(vm *goja.Runtime) {
	reject := func(goja.FunctionCall) goja.Value {
		panic(vm.NewGoError(&ScriptError{Message: "imports are not supported in the sandboxed runtime"}))
	}
	_ = vm.Set("require", reject)
}

func registerCrypto(vm *goja.Runtime) {
	crypto := vm.NewObject()
	_ = crypto.Set("sha256Hex", func(call goja.FunctionCall) goja.Value {
		s := call.Argument(0).String()
		sum := sha256.Sum256([]byte(s))
		return vm.ToValue(hex.EncodeToString(sum[:]))
	})
	_ = crypto.Set("hmacSha256Hex", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		msg := call.Argument(1).String()
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write([]byte(msg))
		return vm.ToValue(hex.EncodeToString(mac.Sum(nil)))
	})
	_ = vm.Set("crypto", crypto)
}

// Eval runs body, which is expected to throw on failure or otherwise be a
// bare sequence of statements (e.g. a setFlagValidationFunction(...) call).
func (s *Sandbox) Eval(body string) error {
	_, err := s.run(body)
	return err
}

func (s *Sandbox) run(body string) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toScriptError(r)
		}
	}()
	v, evalErr := s.vm.RunString(body)
	if evalErr != nil {
		return nil, toScriptError(evalErr)
	}
	return v, nil
}

func toScriptError(r any) error {
	if err, ok := r.(error); ok {
		if e, ok := asScriptError(err); ok {
			return e
		}
		return &ScriptError{Message: err.Error()}
	}
	return &ScriptError{Message: fmt.Sprintf("%v", r)}
}

func asScriptError(err error) (*ScriptError, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if se, ok := err.(*ScriptError); ok {
			return se, true
		}
		if gojaErr, ok := err.(*goja.Exception); ok {
			return &ScriptError{Message: gojaErr.Error()}, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}

// RegisterFlagValidator registers setFlagValidationFunction(fn) in the
// sandbox's global scope; when the script calls it, the JS function handle
// is stored (a later call replaces an earlier one). The returned invoke calls
// the stored function and fails with a ScriptError if none was set; the
// returned register does nothing.
func (s *Sandbox) RegisterFlagValidator() (register func(), invoke func(submitted string) (bool, error)) {
	var fn goja.Callable
	_ = s.vm.Set("setFlagValidationFunction", func(call goja.FunctionCall) goja.Value {
		candidate, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(s.vm.NewGoError(&ScriptError{Message: "setFlagValidationFunction expects a function argument"}))
		}
		fn = candidate
		return goja.Undefined()
	})

	invoke = func(submitted string) (result bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = toScriptError(r)
			}
		}()
		if fn == nil {
			return false, &ScriptError{Message: "flag validation function was not set"}
		}
		v, callErr := fn(goja.Undefined(), s.vm.ToValue(submitted))
		if callErr != nil {
			return false, toScriptError(callErr)
		}
		b, ok := v.Export().(bool)
		if !ok {
			return false, &ScriptError{Message: "flag validation function did not return a boolean"}
		}
		return b, nil
	}
	return func() {}, invoke
}

// RegisterPointsFn registers setPointsFn(fn) in the sandbox's global scope.
func (s *Sandbox) RegisterPointsFn() (invoke func(args ...any) (int, error)) {
	var fn goja.Callable
	_ = s.vm.Set("setPointsFn", func(call goja.FunctionCall) goja.Value {
		candidate, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(s.vm.NewGoError(&ScriptError{Message: "setPointsFn expects a function argument"}))
		}
		fn = candidate
		return goja.Undefined()
	})

	invoke = func(args ...any) (points int, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = toScriptError(r)
			}
		}()
		if fn == nil {
			return 0, &ScriptError{Message: "points function was not set"}
		}
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = s.vm.ToValue(a)
		}
		v, callErr := fn(goja.Undefined(), jsArgs...)
		if callErr != nil {
			return 0, toScriptError(callErr)
		}
		f, ok := v.Export().(int64)
		if !ok {
			if fl, ok2 := v.Export().(float64); ok2 && fl == float64(int64(fl)) {
				return int(fl), nil
			}
			return 0, &ScriptError{Message: "points function did not return an integer"}
		}
		return int(f), nil
	}
	return invoke
}

// EvalGlobal evaluates body purely for its side effects on the global scope
// (used to load _helpers/*.js before rendering a template).
func (s *Sandbox) EvalGlobal(body string) error {
	return s.Eval(body)
}

// VM exposes the underlying goja runtime for callers (e.g. pkg/render, which
// runs template "js" snippets on it directly).
func (s *Sandbox) VM() *goja.Runtime { return s.vm }
