package vm

import (
	"strings"
	"time"

	"github.com/havel-project/havel/internal/clipboard"
)

// defaultBuiltins returns the native function table backing bare
// identifier calls that don't resolve to a compiled chunk function —
// spec.md §6's built-in facade: the free functions (print, log, upper,
// lower, trim, replace, len, sleep, send) plus the namespaced
// clipboard.*/window.*/mpv.* bridges.
func defaultBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"print": builtinPrint,
		"log":   builtinPrint,
		"len":   builtinLen,
		"sleep": builtinSleep,
		"send":  builtinSend,

		"upper":   builtinUpper,
		"lower":   builtinLower,
		"trim":    builtinTrim,
		"replace": builtinReplace,

		"clipboard.get":   builtinClipboardGet,
		"clipboard.set":   builtinClipboardSet,
		"clipboard.paste": builtinClipboardPaste,

		"window.focus": builtinWindowFocus,
		"window.next":  builtinWindowNext,
		"window.title": builtinWindowTitle,

		"mpv.playpause": builtinMediaPlayPause,
	}
}

func argString(args []Value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func builtinPrint(v *VM, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = toString(a)
	}
	line := strings.Join(parts, " ")
	if v.logger != nil {
		v.logger.Info(line)
	}
	return nil, nil
}

func builtinLen(v *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		fault("len expects 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *Array:
		return int64(len(x.Items)), nil
	case *Object:
		return int64(len(x.Order)), nil
	case string:
		return int64(len(x)), nil
	}
	fault("len does not support %s", typeName(args[0]))
	return nil, nil
}

func builtinSleep(v *VM, args []Value) (Value, error) {
	ms, ok := asInt(firstOr(args, nil))
	if !ok {
		fault("sleep expects a numeric duration in milliseconds")
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return nil, nil
}

func firstOr(args []Value, def Value) Value {
	if len(args) == 0 {
		return def
	}
	return args[0]
}

func builtinSend(v *VM, args []Value) (Value, error) {
	if v.sender == nil {
		fault("send: no key sender configured")
	}
	if len(args) == 1 {
		if combo, ok := args[0].(*Array); ok {
			names := make([]string, len(combo.Items))
			for i, item := range combo.Items {
				s, ok := item.(string)
				if !ok {
					fault("send: combo element %d is not a string", i)
				}
				names[i] = s
			}
			return nil, v.sender.SendCombo(names)
		}
	}
	name, ok := argString(args, 0)
	if !ok {
		fault("send expects a key name or array of key names")
	}
	if err := v.sender.Send(name, true); err != nil {
		return nil, err
	}
	return nil, v.sender.Send(name, false)
}

func builtinUpper(v *VM, args []Value) (Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		fault("upper expects a string")
	}
	return strings.ToUpper(s), nil
}

func builtinLower(v *VM, args []Value) (Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		fault("lower expects a string")
	}
	return strings.ToLower(s), nil
}

func builtinTrim(v *VM, args []Value) (Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		fault("trim expects a string")
	}
	return strings.TrimSpace(s), nil
}

func builtinReplace(v *VM, args []Value) (Value, error) {
	s, ok1 := argString(args, 0)
	old, ok2 := argString(args, 1)
	new, ok3 := argString(args, 2)
	if !ok1 || !ok2 || !ok3 {
		fault("replace expects (string, old, new)")
	}
	return strings.ReplaceAll(s, old, new), nil
}

func builtinClipboardGet(v *VM, args []Value) (Value, error) {
	if v.clipboard == nil {
		fault("clipboard.get: no clipboard configured")
	}
	return v.clipboard.Get()
}

func builtinClipboardSet(v *VM, args []Value) (Value, error) {
	if v.clipboard == nil {
		fault("clipboard.set: no clipboard configured")
	}
	text, ok := argString(args, 0)
	if !ok {
		fault("clipboard.set expects a string")
	}
	return nil, v.clipboard.Set(text)
}

// builtinClipboardPaste types text into the focused window directly,
// bypassing the configured Clipboard collaborator — it shells out to
// wl-copy/ydotool or xdotool the way internal/clipboard.PasteText
// always has, since that path needs the live display session rather
// than anything mockable through ioface.Clipboard.
func builtinClipboardPaste(v *VM, args []Value) (Value, error) {
	text, ok := argString(args, 0)
	if !ok {
		fault("clipboard.paste expects a string")
	}
	delayMs := 0
	if len(args) > 1 {
		if ms, ok := asInt(args[1]); ok {
			delayMs = int(ms)
		}
	}
	return nil, clipboard.PasteText(text, delayMs)
}

func builtinWindowFocus(v *VM, args []Value) (Value, error) {
	title, ok := argString(args, 0)
	if !ok {
		fault("window.focus expects a string")
	}
	return nil, v.window.Focus(title)
}

func builtinWindowNext(v *VM, args []Value) (Value, error) {
	return nil, v.window.Next()
}

func builtinWindowTitle(v *VM, args []Value) (Value, error) {
	return v.window.Title()
}

func builtinMediaPlayPause(v *VM, args []Value) (Value, error) {
	return nil, v.media.PlayPause()
}
