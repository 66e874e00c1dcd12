//go:build v8

package sandbox

import (
	"fmt"
	"reflect"

	v8 "github.com/tommie/v8go"

	"github.com/cryguy/renderworker/internal/core"
)

// Engine names the JavaScript engine compiled into this binary.
const Engine = "v8"

// v8Runtime implements core.JSRuntime for the V8 engine.
type v8Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ core.JSRuntime = (*v8Runtime)(nil)

// newRuntime creates an isolate and context. The heap limit is split the
// same way as the engine pool: half initial, full maximum.
func newRuntime(memoryLimitMB int) (core.JSRuntime, error) {
	var iso *v8.Isolate
	if memoryLimitMB > 0 {
		heapSize := uint64(memoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	return &v8Runtime{iso: iso, ctx: v8.NewContext(iso)}, nil
}

func (r *v8Runtime) Eval(js string) error {
	_, err := r.ctx.RunScript(js, "render.js")
	return err
}

func (r *v8Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "render.js")
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

func (r *v8Runtime) EvalBool(js string) (bool, error) {
	val, err := r.ctx.RunScript(js, "render.js")
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.Boolean(), nil
}

// RegisterFunc wraps fn in a FunctionTemplate. Arguments are passed as
// strings; supported returns are none, T, or (T, error) with T a string or
// bool.
func (r *v8Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) < fnType.NumIn() {
			msg := fmt.Sprintf("%s requires at least %d argument(s), got %d", name, fnType.NumIn(), len(args))
			jsMsg, _ := v8.NewValue(r.iso, msg)
			r.iso.ThrowException(jsMsg)
			return nil
		}
		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := range goArgs {
			goArgs[i] = reflect.ValueOf(args[i].String())
		}

		results := fnVal.Call(goArgs)
		switch fnType.NumOut() {
		case 1:
			return toJSValue(r.iso, results[0])
		case 2:
			if errVal := results[1]; !errVal.IsNil() {
				msg := fmt.Sprintf("calling %s: %s", name, errVal.Interface().(error).Error())
				jsMsg, _ := v8.NewValue(r.iso, msg)
				r.iso.ThrowException(jsMsg)
				return nil
			}
			return toJSValue(r.iso, results[0])
		default:
			return nil
		}
	})
	return r.ctx.Global().Set(name, tmpl.GetFunction(r.ctx))
}

func toJSValue(iso *v8.Isolate, val reflect.Value) *v8.Value {
	switch val.Kind() {
	case reflect.String:
		v, _ := v8.NewValue(iso, val.String())
		return v
	case reflect.Bool:
		v, _ := v8.NewValue(iso, val.Bool())
		return v
	default:
		return nil
	}
}

func (r *v8Runtime) RunMicrotasks() {
	r.ctx.PerformMicrotaskCheckpoint()
}

func (r *v8Runtime) Interrupt() {
	r.iso.TerminateExecution()
}

func (r *v8Runtime) Close() {
	r.ctx.Close()
	r.iso.Dispose()
}
