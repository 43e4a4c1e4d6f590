package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftforge/assets/internal/format"
)

func importText(t *testing.T, encoding string, raw []byte) format.Text {
	t.Helper()
	f, err := format.NewText(encoding)
	require.NoError(t, err)
	data, err := f.Import("dialog.txt", raw)
	require.NoError(t, err)
	out, err := format.ConvertText(data)
	require.NoError(t, err)
	txt, ready := out.Value()
	require.True(t, ready)
	return txt
}

func TestTextDecodesBig5(t *testing.T) {
	t.Parallel()

	// 0xA4 0xA4 is U+4E2D in Big5.
	txt := importText(t, "big5", []byte{0xA4, 0xA4, '!'})
	assert.Equal(t, "中!", txt.Content)
}

func TestTextDecodesWindows1252(t *testing.T) {
	t.Parallel()

	txt := importText(t, "windows-1252", []byte{'c', 'a', 'f', 0xE9})
	assert.Equal(t, "café", txt.Content)
}

func TestTextUTF8PassthroughRejectsInvalidBytes(t *testing.T) {
	t.Parallel()

	f, err := format.NewText("utf-8")
	require.NoError(t, err)

	_, err = f.Import("dialog.txt", []byte{0xFF, 0xFE})
	assert.Error(t, err)

	data, err := f.Import("dialog.txt", []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", data)
}

func TestTextEncodingAliases(t *testing.T) {
	t.Parallel()

	for alias, canon := range map[string]string{
		"utf8":     "utf-8",
		"sjis":     "shift-jis",
		"shiftjis": "shift-jis",
		"euckr":    "euc-kr",
		"cp1252":   "windows-1252",
		"BIG5":     "big5",
	} {
		f, err := format.NewText(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, "text-"+canon, f.Name(), alias)
	}

	_, err := format.NewText("ebcdic")
	assert.ErrorIs(t, err, format.ErrUnknownEncoding)
}

func TestTextSplitsLines(t *testing.T) {
	t.Parallel()

	txt := importText(t, "utf-8", []byte("first\r\nsecond\nthird\n"))
	assert.Equal(t, []string{"first", "second", "third"}, txt.Lines)

	empty := importText(t, "utf-8", nil)
	assert.Empty(t, empty.Lines)
}

func TestTextConvertRejectsForeignData(t *testing.T) {
	t.Parallel()

	_, err := format.ConvertText([]byte("bytes, not string"))
	assert.Error(t, err)
}
