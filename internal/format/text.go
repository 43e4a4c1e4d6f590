package format

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/riftforge/assets/internal/core/asset"
)

// ErrUnknownEncoding rejects text formats for encodings nothing can decode.
var ErrUnknownEncoding = errors.New("format: unknown encoding")

// encodings maps canonical names to decoders. A nil entry means UTF-8
// passthrough. Game data in the wild still arrives in the client's native
// codepage, so the legacy set mirrors the clients we feed.
var encodings = map[string]encoding.Encoding{
	"utf-8":        nil,
	"big5":         traditionalchinese.Big5,
	"shift-jis":    japanese.ShiftJIS,
	"euc-kr":       korean.EUCKR,
	"gbk":          simplifiedchinese.GBK,
	"windows-1252": charmap.Windows1252,
}

var encodingAliases = map[string]string{
	"utf8":     "utf-8",
	"sjis":     "shift-jis",
	"shiftjis": "shift-jis",
	"euckr":    "euc-kr",
	"cp1252":   "windows-1252",
}

// TextFormat decodes legacy-encoded text assets to UTF-8 on the worker.
// Each Import builds its own decoder, since decoder state is not safe to
// share between workers.
type TextFormat struct {
	name string
	enc  encoding.Encoding // nil = UTF-8 passthrough
}

// NewText returns the format for one source encoding. The encoding becomes
// part of the format name, so the same path under two encodings dedups as
// two distinct loads.
func NewText(encName string) (*TextFormat, error) {
	canon := strings.ToLower(strings.TrimSpace(encName))
	if alias, ok := encodingAliases[canon]; ok {
		canon = alias
	}
	enc, ok := encodings[canon]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encName)
	}
	return &TextFormat{name: "text-" + canon, enc: enc}, nil
}

func (f *TextFormat) Name() string { return f.name }

func (f *TextFormat) Import(name string, raw []byte) (any, error) {
	if f.enc == nil {
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("not valid UTF-8")
		}
		return string(raw), nil
	}
	decoded, err := f.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(f.name, "text-"), err)
	}
	return string(decoded), nil
}

// Text is the loaded asset: the decoded UTF-8 content plus a line split.
type Text struct {
	Content string
	Lines   []string
}

func ConvertText(data any) (asset.Outcome[Text], error) {
	s, ok := data.(string)
	if !ok {
		return asset.Outcome[Text]{}, fmt.Errorf("text: unexpected data %T", data)
	}
	return asset.Ready(Text{Content: s, Lines: splitLines(s)}), nil
}

// splitLines splits on \n and tolerates \r\n. A trailing newline does not
// produce a phantom empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
