package jobs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Header is the CSV header row
var Header = []string{"회사이름", "공고제목", "회사위치", "자세히보기"}

const (
	EncodingCP949 = "cp949"
	EncodingUTF8  = "utf-8"
)

// WriteCSV writes jobs with a header row. enc is cp949 (the default,
// readable by Korean Excel) or utf-8. Characters outside CP949 are
// replaced.
func WriteCSV(w io.Writer, jobs []Job, enc string) error {
	out, err := encodeWriter(w, enc)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, j := range jobs {
		if err := cw.Write([]string{j.Company, j.Title, j.Location, j.Link}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if c, ok := out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ContentType returns the CSV content type for enc
func ContentType(enc string) string {
	if normalize(enc) == EncodingUTF8 {
		return "text/csv; charset=utf-8"
	}
	return "text/csv; charset=cp949"
}

func encodeWriter(w io.Writer, enc string) (io.Writer, error) {
	switch normalize(enc) {
	case EncodingCP949:
		e := encoding.ReplaceUnsupported(korean.EUCKR.NewEncoder())
		return transform.NewWriter(w, e), nil
	case EncodingUTF8:
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported csv encoding: %s", enc)
	}
}

func normalize(enc string) string {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "cp949", "euc-kr", "euckr":
		return EncodingCP949
	case "utf-8", "utf8":
		return EncodingUTF8
	default:
		return enc
	}
}
