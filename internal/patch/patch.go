// Package patch применяет JSON Patch (RFC 6902) к доменным записям:
// запись сериализуется в JSON, к документу применяются операции,
// результат декодируется обратно в типизированную структуру.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ErrInvalid оборачивает любую структурную ошибку патча.
var ErrInvalid = errors.New("invalid json patch")

// Operation - одна операция патча в том виде, в каком ее прислал клиент.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Targets сообщает, затрагивает ли операция поле верхнего уровня field
// (сам путь "/field" или любой вложенный "/field/..."), без учета регистра.
// Для move учитывается и исходный путь, так как он удаляется из документа.
// test ничего не меняет и не учитывается.
func (o Operation) Targets(field string) bool {
	if strings.EqualFold(o.Op, "test") {
		return false
	}
	if pointsAt(o.Path, field) {
		return true
	}
	return strings.EqualFold(o.Op, "move") && pointsAt(o.From, field)
}

// ReplacesExactly сообщает, записывает ли операция новое значение ровно в "/field".
func (o Operation) ReplacesExactly(field string) bool {
	op := strings.ToLower(o.Op)
	return (op == "replace" || op == "add") && strings.EqualFold(o.Path, "/"+field)
}

// Removes сообщает, удаляет ли операция поле "/field" целиком.
func (o Operation) Removes(field string) bool {
	if strings.EqualFold(o.Op, "remove") && strings.EqualFold(o.Path, "/"+field) {
		return true
	}
	return strings.EqualFold(o.Op, "move") && strings.EqualFold(o.From, "/"+field)
}

// StringValue возвращает value операции как строку.
func (o Operation) StringValue() (string, error) {
	var s string
	if len(o.Value) == 0 || string(o.Value) == "null" {
		return "", fmt.Errorf("%w: operation %q on %q has no value", ErrInvalid, o.Op, o.Path)
	}
	if err := json.Unmarshal(o.Value, &s); err != nil {
		return "", fmt.Errorf("%w: value of %q is not a string: %v", ErrInvalid, o.Path, err)
	}
	return s, nil
}

func pointsAt(path, field string) bool {
	if path == "" {
		return false
	}
	prefix := "/" + strings.ToLower(field)
	p := strings.ToLower(path)
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// Patch - разобранный JSON Patch.
type Patch struct {
	ops      []Operation
	compiled jsonpatch.Patch
}

// Decode разбирает тело запроса. Пустое тело и не-массив считаются ошибкой.
func Decode(raw []byte) (*Patch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: body must be a JSON array of operations", ErrInvalid)
	}

	var ops []Operation
	if err := json.Unmarshal(trimmed, &ops); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for i, op := range ops {
		if op.Op == "" || op.Path == "" {
			return nil, fmt.Errorf("%w: operation %d must have op and a non-root path", ErrInvalid, i)
		}
	}

	compiled, err := jsonpatch.DecodePatch(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &Patch{ops: ops, compiled: compiled}, nil
}

// Operations возвращает операции в порядке применения.
func (p *Patch) Operations() []Operation {
	return p.ops
}

// ApplyTo применяет патч к JSON-представлению current и декодирует результат в out.
// Поля, которых нет в типе out, считаются ошибкой.
func (p *Patch) ApplyTo(current, out any) error {
	doc, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	patched, err := p.compiled.Apply(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	dec := json.NewDecoder(bytes.NewReader(patched))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
