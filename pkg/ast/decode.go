package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// DecodeError reports a malformed document together with the JSON path of
// the offending node.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode: " + e.Message
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

func decodeErr(path, format string, args ...any) error {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// DecodeFile reads a whole program document.
func DecodeFile(r io.Reader) (*File, error) {
	raw, err := readObject(r)
	if err != nil {
		return nil, err
	}
	return decodeFile(raw)
}

// DecodeFileBytes is DecodeFile over an in-memory document.
func DecodeFileBytes(data []byte) (*File, error) {
	return DecodeFile(bytes.NewReader(data))
}

// DecodeTerm reads a single term document (no file envelope).
func DecodeTerm(r io.Reader) (Term, error) {
	raw, err := readObject(r)
	if err != nil {
		return nil, err
	}
	return decodeTerm(raw, "$")
}

func readObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw == nil {
		return nil, decodeErr("$", "document is not an object")
	}
	return raw, nil
}

func decodeFile(node map[string]any) (*File, error) {
	name, _ := node["name"].(string)
	exprRaw, ok := node["expression"].(map[string]any)
	if !ok {
		return nil, decodeErr("$.expression", "missing expression")
	}
	expr, err := decodeTerm(exprRaw, "$.expression")
	if err != nil {
		return nil, err
	}
	file := NewFile(name, expr)
	if locRaw, ok := node["location"].(map[string]any); ok {
		loc, err := decodeLocation(locRaw, "$.location")
		if err != nil {
			return nil, err
		}
		file.Location = loc
	}
	return file, nil
}

func decodeTerm(node map[string]any, path string) (Term, error) {
	kind, _ := node["kind"].(string)
	var term Term
	switch TermKind(kind) {
	case KindInt:
		val, err := decodeInt(node["value"], path+".value")
		if err != nil {
			return nil, err
		}
		term = NewInt(val)
	case KindStr:
		val, ok := node["value"].(string)
		if !ok {
			return nil, decodeErr(path+".value", "expected string")
		}
		term = NewStr(val)
	case KindBool:
		val, ok := node["value"].(bool)
		if !ok {
			return nil, decodeErr(path+".value", "expected boolean")
		}
		term = NewBool(val)
	case KindVar:
		text, ok := node["text"].(string)
		if !ok {
			return nil, decodeErr(path+".text", "expected string")
		}
		term = NewVar(text)
	case KindBinary:
		op, _ := node["op"].(string)
		if !BinaryOp(op).IsValid() {
			return nil, decodeErr(path+".op", "unknown binary operator %q", op)
		}
		lhs, err := decodeChild(node, "lhs", path)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeChild(node, "rhs", path)
		if err != nil {
			return nil, err
		}
		term = NewBinary(BinaryOp(op), lhs, rhs)
	case KindIf:
		cond, err := decodeChild(node, "condition", path)
		if err != nil {
			return nil, err
		}
		then, err := decodeChild(node, "then", path)
		if err != nil {
			return nil, err
		}
		otherwise, err := decodeChild(node, "otherwise", path)
		if err != nil {
			return nil, err
		}
		term = NewIf(cond, then, otherwise)
	case KindLet:
		nameRaw, ok := node["name"].(map[string]any)
		if !ok {
			return nil, decodeErr(path+".name", "missing binding name")
		}
		name, err := decodeParameter(nameRaw, path+".name")
		if err != nil {
			return nil, err
		}
		value, err := decodeChild(node, "value", path)
		if err != nil {
			return nil, err
		}
		next, err := decodeChild(node, "next", path)
		if err != nil {
			return nil, err
		}
		term = NewLet(name, value, next)
	case KindFunction:
		paramsVal, _ := node["parameters"].([]any)
		params := make([]*Parameter, 0, len(paramsVal))
		for idx, raw := range paramsVal {
			child, ok := raw.(map[string]any)
			if !ok {
				return nil, decodeErr(fmt.Sprintf("%s.parameters[%d]", path, idx), "invalid parameter %T", raw)
			}
			param, err := decodeParameter(child, fmt.Sprintf("%s.parameters[%d]", path, idx))
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		body, err := decodeChild(node, "value", path)
		if err != nil {
			return nil, err
		}
		term = NewFunction(params, body)
	case KindCall:
		callee, err := decodeChild(node, "callee", path)
		if err != nil {
			return nil, err
		}
		argsVal, _ := node["arguments"].([]any)
		args := make([]Term, 0, len(argsVal))
		for idx, raw := range argsVal {
			argPath := fmt.Sprintf("%s.arguments[%d]", path, idx)
			child, ok := raw.(map[string]any)
			if !ok {
				return nil, decodeErr(argPath, "invalid argument %T", raw)
			}
			arg, err := decodeTerm(child, argPath)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		term = NewCall(callee, args)
	case KindPrint:
		value, err := decodeChild(node, "value", path)
		if err != nil {
			return nil, err
		}
		term = NewPrint(value)
	case KindTuple:
		first, err := decodeChild(node, "first", path)
		if err != nil {
			return nil, err
		}
		second, err := decodeChild(node, "second", path)
		if err != nil {
			return nil, err
		}
		term = NewTuple(first, second)
	case KindFirst:
		value, err := decodeChild(node, "value", path)
		if err != nil {
			return nil, err
		}
		term = NewFirst(value)
	case KindSecond:
		value, err := decodeChild(node, "value", path)
		if err != nil {
			return nil, err
		}
		term = NewSecond(value)
	case KindError:
		message, _ := node["message"].(string)
		fullText, _ := node["full_text"].(string)
		term = NewError(message, fullText)
	case "":
		return nil, decodeErr(path, "node missing kind")
	default:
		return nil, decodeErr(path, "unknown node kind %q", kind)
	}
	if locRaw, ok := node["location"].(map[string]any); ok {
		loc, err := decodeLocation(locRaw, path+".location")
		if err != nil {
			return nil, err
		}
		SetLocation(term, loc)
	}
	return term, nil
}

func decodeChild(node map[string]any, key, path string) (Term, error) {
	childPath := path + "." + key
	raw, ok := node[key].(map[string]any)
	if !ok {
		return nil, decodeErr(childPath, "missing node")
	}
	return decodeTerm(raw, childPath)
}

func decodeParameter(node map[string]any, path string) (*Parameter, error) {
	text, ok := node["text"].(string)
	if !ok {
		return nil, decodeErr(path+".text", "expected string")
	}
	param := NewParameter(text)
	if locRaw, ok := node["location"].(map[string]any); ok {
		loc, err := decodeLocation(locRaw, path+".location")
		if err != nil {
			return nil, err
		}
		param.Location = loc
	}
	return param, nil
}

func decodeLocation(node map[string]any, path string) (Location, error) {
	start, err := decodeInt(node["start"], path+".start")
	if err != nil {
		return Location{}, err
	}
	end, err := decodeInt(node["end"], path+".end")
	if err != nil {
		return Location{}, err
	}
	filename, _ := node["filename"].(string)
	return Location{Start: int(start), End: int(end), Filename: filename}, nil
}

func decodeInt(value any, path string) (int64, error) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return 0, decodeErr(path, "integer %s out of range", v.String())
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, decodeErr(path, "integer %v out of range", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, decodeErr(path, "invalid integer %q", v)
		}
		return n, nil
	case nil:
		return 0, decodeErr(path, "missing integer")
	default:
		return 0, decodeErr(path, "expected integer, got %T", value)
	}
}
