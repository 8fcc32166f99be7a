package vm

import "github.com/havel-project/havel/internal/lang/compiler"

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	if len(f.stack) == 0 {
		fault("stack underflow in %q", f.fn.Name)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) local(slot int) Value {
	if slot < 0 || slot >= len(f.locals) {
		fault("local slot %d out of range in %q", slot, f.fn.Name)
	}
	return f.locals[slot]
}

func (f *frame) setLocal(slot int, v Value) {
	if slot < 0 || slot >= len(f.locals) {
		fault("local slot %d out of range in %q", slot, f.fn.Name)
	}
	f.locals[slot] = v
}

func funcName(v Value) (string, bool) {
	switch x := v.(type) {
	case Func:
		return x.Name, true
	case compiler.FuncRef:
		return x.Name, true
	}
	return "", false
}

// invoke resolves name to a chunk function or builtin and runs it to
// completion, returning its value. Faults propagate as panics of
// *Fault, caught by execLoop's try/catch handling or by callNamed at
// the outermost call.
func (v *VM) invoke(name string, args []Value) Value {
	fn, ok := v.chunk.Get(name)
	if !ok {
		bf, ok := v.builtins[name]
		if !ok {
			fault("unknown function %q", name)
		}
		res, err := bf(v, args)
		if err != nil {
			fault("%s: %v", name, err)
		}
		return res
	}
	locals := make([]Value, fn.LocalCount)
	for i := 0; i < fn.ParamCount && i < len(args); i++ {
		locals[i] = args[i]
	}
	f := &frame{fn: fn, locals: locals}
	val, _ := v.execLoop(f)
	return val
}

// execLoop runs f's instructions until RETURN. A *Fault panic is
// caught here: if f has an active try handler, the stack is truncated
// to the size it held when SETUP_TRY ran, ip jumps to the catch
// target, and execution resumes (recursively, since Go's recover
// cannot itself resume a loop past the point it unwound from); with no
// handler, the fault re-panics for the caller to deal with.
func (v *VM) execLoop(f *frame) (result Value, returned bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		flt, ok := r.(*Fault)
		if !ok {
			panic(r)
		}
		if len(f.handlers) == 0 {
			panic(flt)
		}
		h := f.handlers[len(f.handlers)-1]
		f.handlers = f.handlers[:len(f.handlers)-1]
		if h.stackSize <= len(f.stack) {
			f.stack = f.stack[:h.stackSize]
		} else {
			f.stack = f.stack[:0]
		}
		f.ip = h.target
		result, returned = v.execLoop(f)
	}()

	for {
		if f.ip >= len(f.fn.Instructions) {
			fault("ip ran off the end of %q", f.fn.Name)
		}
		ins := f.fn.Instructions[f.ip]
		f.ip++

		switch ins.Op {
		case compiler.LOAD_CONST:
			f.push(constValue(f.fn.Constants[ins.Operands[0]]))
		case compiler.LOAD_VAR:
			f.push(f.local(ins.Operands[0]))
		case compiler.STORE_VAR:
			f.setLocal(ins.Operands[0], f.peek())
		case compiler.LOAD_GLOBAL:
			// globals is only ever touched while v.mu is held (every entry
			// point into execLoop goes through the locked Call), so no
			// extra locking is needed here.
			name := f.fn.Constants[ins.Operands[0]].(string)
			if val, ok := v.globals[name]; ok {
				f.push(val)
			} else {
				f.push(Func{Name: name})
			}
		case compiler.STORE_GLOBAL:
			name := f.fn.Constants[ins.Operands[0]].(string)
			v.globals[name] = f.peek()
		case compiler.POP:
			f.pop()
		case compiler.DUP:
			f.push(f.peek())

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD, compiler.POW:
			b := f.pop()
			a := f.pop()
			f.push(arith(opSymbol(ins.Op), a, b))
		case compiler.EQ, compiler.NEQ, compiler.LT, compiler.LTE, compiler.GT, compiler.GTE:
			b := f.pop()
			a := f.pop()
			f.push(compare(opSymbol(ins.Op), a, b))
		case compiler.AND:
			b := f.pop()
			a := f.pop()
			f.push(truthy(a) && truthy(b))
		case compiler.OR:
			b := f.pop()
			a := f.pop()
			f.push(truthy(a) || truthy(b))
		case compiler.NOT:
			f.push(!truthy(f.pop()))
		case compiler.NEG:
			switch n := f.pop().(type) {
			case int64:
				f.push(-n)
			case float64:
				f.push(-n)
			default:
				fault("cannot negate %s", typeName(n))
			}

		case compiler.JUMP:
			f.ip = ins.Operands[0]
		case compiler.JUMP_IF_FALSE:
			if !truthy(f.pop()) {
				f.ip = ins.Operands[0]
			}
		case compiler.JUMP_IF_TRUE:
			if truthy(f.pop()) {
				f.ip = ins.Operands[0]
			}
		case compiler.CALL:
			argc := ins.Operands[0]
			callee := f.pop()
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			name, ok := funcName(callee)
			if !ok {
				fault("cannot call a value of type %s", typeName(callee))
			}
			f.push(v.invoke(name, args))
		case compiler.RETURN:
			return f.pop(), true

		case compiler.MAKE_CLOSURE:
			ref, ok := f.pop().(compiler.FuncRef)
			if !ok {
				fault("MAKE_CLOSURE expects a function reference")
			}
			f.push(Func{Name: ref.Name})

		case compiler.ARRAY_NEW:
			f.push(&Array{})
		case compiler.ARRAY_GET:
			idxVal := f.pop()
			arr, ok := f.pop().(*Array)
			if !ok {
				fault("ARRAY_GET on a non-array value")
			}
			idx, ok := asInt(idxVal)
			if !ok || idx < 0 || int(idx) >= len(arr.Items) {
				fault("array index %v out of range", idxVal)
			}
			f.push(arr.Items[idx])
		case compiler.ARRAY_SET:
			val := f.pop()
			idxVal := f.pop()
			arr, ok := f.pop().(*Array)
			if !ok {
				fault("ARRAY_SET on a non-array value")
			}
			idx, ok := asInt(idxVal)
			if !ok || idx < 0 || int(idx) >= len(arr.Items) {
				fault("array index %v out of range", idxVal)
			}
			arr.Items[idx] = val
		case compiler.ARRAY_PUSH:
			val := f.pop()
			arr, ok := f.pop().(*Array)
			if !ok {
				fault("ARRAY_PUSH on a non-array value")
			}
			arr.Items = append(arr.Items, val)

		case compiler.OBJECT_NEW:
			f.push(&Object{Fields: make(map[string]Value)})
		case compiler.OBJECT_GET:
			key := f.pop()
			obj, ok := f.pop().(*Object)
			if !ok {
				fault("OBJECT_GET on a non-object value")
			}
			ks, ok := key.(string)
			if !ok {
				fault("object key must be a string")
			}
			f.push(obj.Fields[ks])
		case compiler.OBJECT_SET:
			val := f.pop()
			key := f.pop()
			obj, ok := f.pop().(*Object)
			if !ok {
				fault("OBJECT_SET on a non-object value")
			}
			ks, ok := key.(string)
			if !ok {
				fault("object key must be a string")
			}
			obj.set(ks, val)

		case compiler.SETUP_TRY:
			f.handlers = append(f.handlers, tryHandler{target: ins.Operands[0], stackSize: len(f.stack)})
		case compiler.POP_TRY:
			if len(f.handlers) > 0 {
				f.handlers = f.handlers[:len(f.handlers)-1]
			}

		case compiler.PRINT, compiler.DEBUG:
			val := f.pop()
			if v.logger != nil {
				v.logger.Info(toString(val))
			}
		case compiler.NOP:
			// no-op

		default:
			fault("unimplemented opcode %s", ins.Op)
		}
	}
}

func (f *frame) peek() Value {
	if len(f.stack) == 0 {
		fault("stack underflow in %q", f.fn.Name)
	}
	return f.stack[len(f.stack)-1]
}

// constValue converts a compiler constant into a runtime Value. Every
// constant the compiler emits is already a Go value of a type this
// package understands (nil, bool, int64, float64, string,
// compiler.FuncRef); FuncRef constants are left as-is since invoke
// only needs the name.
func constValue(c interface{}) Value { return c }

func opSymbol(op compiler.OpCode) string {
	switch op {
	case compiler.ADD:
		return "+"
	case compiler.SUB:
		return "-"
	case compiler.MUL:
		return "*"
	case compiler.DIV:
		return "/"
	case compiler.MOD:
		return "%"
	case compiler.POW:
		return "**"
	case compiler.EQ:
		return "=="
	case compiler.NEQ:
		return "!="
	case compiler.LT:
		return "<"
	case compiler.LTE:
		return "<="
	case compiler.GT:
		return ">"
	case compiler.GTE:
		return ">="
	}
	return "?"
}
