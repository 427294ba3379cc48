// Package blocks provides the block document model: a versioned, ordered sequence of
// typed content blocks (paragraphs, headers, lists, quotes, images, tables, embeds,
// alerts), its JSON wire format, and schema validation.
package blocks

import "encoding/json"

// SchemaVersion is the block-schema dialect produced by this module.
const SchemaVersion = "2.28.2"

// Block type identifiers as they appear on the wire.
const (
	TypeParagraph = "paragraph"
	TypeHeader    = "header"
	TypeList      = "list"
	TypeQuote     = "quote"
	TypeImage     = "image"
	TypeTable     = "table"
	TypeEmbed     = "embed"
	TypeAlert     = "alert"
)

// List styles.
const (
	StyleUnordered = "unordered"
	StyleOrdered   = "ordered"
)

// Block represents any content block in a Document.
type Block interface {
	// BlockType returns the type identifier (e.g., "paragraph", "header").
	BlockType() string
	// BlockID returns the editor-assigned block id, if any.
	BlockID() string
}

// Document is a full content field as an ordered sequence of blocks.
type Document struct {
	Time    int64   `json:"time"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version"`

	// extra holds top-level members other than time, blocks and version.
	extra map[string]json.RawMessage
}

// Base carries the fields shared by every block variant.
type Base struct {
	ID string `json:"-"`

	// extra holds envelope members other than id, type and data, such as "tunes".
	extra map[string]json.RawMessage
	// data is the payload as read. Members the variant does not model are written back.
	data json.RawMessage
}

// BlockID implements Block.
func (b Base) BlockID() string { return b.ID }

func (b Base) wire() (map[string]json.RawMessage, json.RawMessage) { return b.extra, b.data }

func (b *Base) setWire(id string, extra map[string]json.RawMessage, data json.RawMessage) {
	b.ID = id
	b.extra = extra
	b.data = data
}

// Paragraph is a run of inline HTML text.
type Paragraph struct {
	Base
	Text string `json:"text"`
}

// BlockType implements Block.
func (Paragraph) BlockType() string { return TypeParagraph }

// Header is a heading (h1-h6).
type Header struct {
	Base
	Text  string `json:"text"`
	Level int    `json:"level" validate:"min=1,max=6"`
}

// BlockType implements Block.
func (Header) BlockType() string { return TypeHeader }

// List is an ordered or unordered list with optionally nested items.
type List struct {
	Base
	Style string     `json:"style" validate:"oneof=unordered ordered"`
	Items []ListItem `json:"items" validate:"dive"`
}

// BlockType implements Block.
func (List) BlockType() string { return TypeList }

// Ordered reports whether the list renders as an ordered list.
func (l List) Ordered() bool { return l.Style == StyleOrdered }

// ListItem is one list entry. Content holds inline HTML only.
type ListItem struct {
	Content string     `json:"content"`
	Items   []ListItem `json:"items" validate:"dive"`

	// object records that the item arrived in {content, items} form, so it is
	// written back the same way. extra keeps the other members of that form ("meta").
	object bool
	extra  map[string]json.RawMessage
}

// Quote is a block quotation with an optional caption.
type Quote struct {
	Base
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Alignment string `json:"alignment" validate:"omitempty,oneof=left center right"`
}

// BlockType implements Block.
func (Quote) BlockType() string { return TypeQuote }

// Image references an image by URL.
type Image struct {
	Base
	URL            string `json:"url" validate:"required"`
	Caption        string `json:"caption,omitempty"`
	WithBorder     bool   `json:"withBorder,omitempty"`
	Stretched      bool   `json:"stretched,omitempty"`
	WithBackground bool   `json:"withBackground,omitempty"`
}

// BlockType implements Block.
func (Image) BlockType() string { return TypeImage }

// Table is a grid of cell strings. When WithHeadings is set the first row is the header row.
// The widget stores rows under "content"; "rows" is accepted on input and kept if read.
type Table struct {
	Base
	WithHeadings bool       `json:"withHeadings,omitempty"`
	Rows         [][]string `json:"rows" validate:"min=1"`

	rowsKey string
}

// BlockType implements Block.
func (Table) BlockType() string { return TypeTable }

// Embed is third-party media (youtube, vimeo, ...) shown in a frame.
type Embed struct {
	Base
	Service string `json:"service" validate:"required"`
	Source  string `json:"source"`
	Embed   string `json:"embed" validate:"required,url"`
	Width   int    `json:"width,omitempty" validate:"gte=0"`
	Height  int    `json:"height,omitempty" validate:"gte=0"`
	Caption string `json:"caption,omitempty"`
}

// BlockType implements Block.
func (Embed) BlockType() string { return TypeEmbed }

// Alert is a highlighted notice.
type Alert struct {
	Base
	Type    string `json:"type,omitempty"`
	Message string `json:"message" validate:"required"`
	Align   string `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
}

// BlockType implements Block.
func (Alert) BlockType() string { return TypeAlert }

// Opaque preserves a block this package cannot interpret: an unknown type, or a known
// type whose data does not match its schema. Data is kept byte-for-byte.
type Opaque struct {
	Base
	Type string
	Data json.RawMessage
}

// BlockType implements Block.
func (o Opaque) BlockType() string { return o.Type }
