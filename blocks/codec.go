package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// envelope is the wire shape of one block. Members other than id, type and data are
// carried in Extra and written back after them.
type envelope struct {
	ID    string
	Type  string
	Data  json.RawMessage
	Extra map[string]json.RawMessage
}

func (e envelope) MarshalJSON() ([]byte, error) {
	var fixed []member
	if e.ID != "" {
		fixed = append(fixed, member{"id", quote(e.ID)})
	}
	fixed = append(fixed, member{"type", quote(e.Type)}, member{"data", e.Data})
	return encodeObject(fixed, e.Extra)
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*e = envelope{}
	if raw, ok := members["id"]; ok {
		if err := json.Unmarshal(raw, &e.ID); err != nil {
			return fmt.Errorf("block id: %w", err)
		}
	}
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &e.Type); err != nil {
			return fmt.Errorf("block type: %w", err)
		}
	}
	e.Data = members["data"]
	delete(members, "id")
	delete(members, "type")
	delete(members, "data")
	if len(members) > 0 {
		e.Extra = members
	}
	return nil
}

// factories maps every known block type to a constructor for its payload.
var factories = map[string]func() Block{
	TypeParagraph: func() Block { return &Paragraph{} },
	TypeHeader:    func() Block { return &Header{} },
	TypeList:      func() Block { return &List{} },
	TypeQuote:     func() Block { return &Quote{} },
	TypeImage:     func() Block { return &Image{} },
	TypeTable:     func() Block { return &Table{} },
	TypeEmbed:     func() Block { return &Embed{} },
	TypeAlert:     func() Block { return &Alert{} },
}

// KnownType reports whether blockType has a typed variant in this package.
func KnownType(blockType string) bool {
	_, ok := factories[blockType]
	return ok
}

// MarshalJSON encodes the document in the {time, blocks, version} wire format. Members
// that were read but are not modelled are written back unchanged.
func (d Document) MarshalJSON() ([]byte, error) {
	envs := make([]envelope, 0, len(d.Blocks))
	for i, block := range d.Blocks {
		if block == nil {
			continue
		}
		env, err := encodeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, block.BlockType(), err)
		}
		envs = append(envs, env)
	}
	blocksJSON, err := json.Marshal(envs)
	if err != nil {
		return nil, err
	}
	return encodeObject([]member{
		{"time", json.RawMessage(fmt.Sprint(d.Time))},
		{"blocks", blocksJSON},
		{"version", quote(d.Version)},
	}, d.extra)
}

// UnmarshalJSON decodes the wire format. Blocks of unknown type, and known blocks whose
// data does not fit their schema, are kept as *Opaque.
func (d *Document) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*d = Document{Blocks: []Block{}}
	if raw, ok := members["time"]; ok {
		if err := json.Unmarshal(raw, &d.Time); err != nil {
			return fmt.Errorf("document time: %w", err)
		}
	}
	if raw, ok := members["version"]; ok {
		if err := json.Unmarshal(raw, &d.Version); err != nil {
			return fmt.Errorf("document version: %w", err)
		}
	}
	if raw, ok := members["blocks"]; ok {
		var envs []envelope
		if err := json.Unmarshal(raw, &envs); err != nil {
			return fmt.Errorf("document blocks: %w", err)
		}
		for _, env := range envs {
			d.Blocks = append(d.Blocks, decodeBlock(env))
		}
	}
	delete(members, "time")
	delete(members, "version")
	delete(members, "blocks")
	if len(members) > 0 {
		d.extra = members
	}
	return nil
}

// wired and wireSetter are implemented by blocks embedding Base.
type wired interface {
	wire() (map[string]json.RawMessage, json.RawMessage)
}

type wireSetter interface {
	setWire(id string, extra map[string]json.RawMessage, data json.RawMessage)
}

func encodeBlock(block Block) (envelope, error) {
	env := envelope{ID: block.BlockID(), Type: block.BlockType()}
	var original json.RawMessage
	if w, ok := block.(wired); ok {
		env.Extra, original = w.wire()
	}
	switch b := block.(type) {
	case *Opaque:
		env.Data = b.Data
	case Opaque:
		env.Data = b.Data
	default:
		encoded, err := json.Marshal(block)
		if err != nil {
			return envelope{}, err
		}
		merged, err := mergeData(encoded, original, dataKeys(block))
		if err != nil {
			return envelope{}, err
		}
		env.Data = merged
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("{}")
	}
	return env, nil
}

func decodeBlock(env envelope) Block {
	factory, ok := factories[env.Type]
	if !ok {
		return opaque(env)
	}
	block := factory()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, block); err != nil {
			return opaque(env)
		}
	}
	if s, ok := block.(wireSetter); ok {
		s.setWire(env.ID, env.Extra, env.Data)
	}
	return block
}

func opaque(env envelope) *Opaque {
	return &Opaque{Base: Base{ID: env.ID, extra: env.Extra}, Type: env.Type, Data: env.Data}
}

// mergeData adds back the members of original that encoded lacks: keys the variant does
// not model, and modelled keys that were empty and so dropped by omitempty. A modelled
// key that had a value and is now absent stays absent.
func mergeData(encoded, original json.RawMessage, known map[string]bool) (json.RawMessage, error) {
	if len(original) == 0 {
		return encoded, nil
	}
	var orig map[string]json.RawMessage
	if err := json.Unmarshal(original, &orig); err != nil || len(orig) == 0 {
		return encoded, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	for k, v := range orig {
		if _, ok := out[k]; ok {
			continue
		}
		if !known[k] || emptyJSON(v) {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// dataKeys lists the data members a block variant models.
func dataKeys(block Block) map[string]bool {
	keys := make(map[string]bool)
	if k, ok := block.(interface{ dataKeys() []string }); ok {
		for _, key := range k.dataKeys() {
			keys[key] = true
		}
		return keys
	}
	t := reflect.TypeOf(block)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return keys
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || f.PkgPath != "" {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys[name] = true
	}
	return keys
}

func emptyJSON(v json.RawMessage) bool {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return false
	}
	switch buf.String() {
	case "null", "false", "0", `""`, "[]", "{}":
		return true
	}
	return false
}

type member struct {
	key   string
	value json.RawMessage
}

// encodeObject writes fixed members in order, then the extra members not already written,
// sorted by key.
func encodeObject(fixed []member, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]bool, len(fixed))
	write := func(key string, value json.RawMessage) error {
		if seen[key] {
			return nil
		}
		seen[key] = true
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		return json.Compact(&buf, value)
	}
	for _, m := range fixed {
		if err := write(m.key, m.value); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// ParseJSON decodes a JSON-encoded Document.
func ParseJSON(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// FromMap decodes the mapping form of a Document, as produced by a generic JSON decoder.
func FromMap(m map[string]interface{}) (*Document, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode document map: %w", err)
	}
	return ParseJSON(data)
}

// ToMap returns the mapping form of the document.
func (d *Document) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// LooksLikeDocument reports whether m is a mapping with a non-empty "blocks" entry.
func LooksLikeDocument(m map[string]interface{}) bool {
	switch b := m["blocks"].(type) {
	case []interface{}:
		return len(b) > 0
	case []map[string]interface{}:
		return len(b) > 0
	case []Block:
		return len(b) > 0
	default:
		return false
	}
}

// MarshalJSON writes a plain string for simple items and {content, items} for nested
// ones or items that were read in object form.
func (li ListItem) MarshalJSON() ([]byte, error) {
	if !li.object && len(li.Items) == 0 && len(li.extra) == 0 {
		return json.Marshal(li.Content)
	}
	items := li.Items
	if items == nil {
		items = []ListItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return encodeObject([]member{
		{"content", quote(li.Content)},
		{"items", itemsJSON},
	}, li.extra)
}

// UnmarshalJSON accepts either a plain string or a {content, items, ...} object.
func (li *ListItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*li = ListItem{Content: s}
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("list item must be a string or {content, items}: %w", err)
	}
	item := ListItem{object: true}
	if raw, ok := members["content"]; ok {
		if err := json.Unmarshal(raw, &item.Content); err != nil {
			return fmt.Errorf("list item content: %w", err)
		}
	}
	if raw, ok := members["items"]; ok {
		if err := json.Unmarshal(raw, &item.Items); err != nil {
			return fmt.Errorf("list item items: %w", err)
		}
	}
	delete(members, "content")
	delete(members, "items")
	if len(members) > 0 {
		item.extra = members
	}
	*li = item
	return nil
}

// MarshalJSON writes the rows under the key they were read from, "content" by default.
func (t Table) MarshalJSON() ([]byte, error) {
	key := t.rowsKey
	if key == "" {
		key = "content"
	}
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	out := map[string]interface{}{key: rows}
	if t.WithHeadings {
		out["withHeadings"] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the table payload under "rows" or the widget's "content" key.
func (t *Table) UnmarshalJSON(data []byte) error {
	type plain Table
	var aux struct {
		plain
		Content [][]string `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Rows != nil:
		aux.rowsKey = "rows"
	case aux.Content != nil:
		aux.Rows = aux.Content
		aux.rowsKey = "content"
	}
	*t = Table(aux.plain)
	return nil
}

func (Table) dataKeys() []string { return []string{"withHeadings", "rows", "content"} }
