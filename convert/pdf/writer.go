// Package pdf renders documents to paginated PDF. The file is serialized
// by hand: a handful of numbered objects, a classic xref table and a
// trailer. Text uses the four Helvetica Type1 base fonts with WinAnsi
// encoding, so no font program is embedded.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// file accumulates numbered indirect objects and serializes them with a
// cross reference table. Object 1 is always the catalog.
type file struct {
	bodies map[int][]byte
	next   int
}

func newFile() *file {
	return &file{bodies: make(map[int][]byte), next: 1}
}

// alloc reserves the next object number.
func (f *file) alloc() int {
	n := f.next
	f.next++
	return n
}

// set stores the body of an object, everything between "N 0 obj" and
// "endobj".
func (f *file) set(num int, body []byte) {
	f.bodies[num] = body
}

// stream builds a stream object body from a dictionary (without Length)
// and raw data.
func stream(dict string, data []byte) []byte {
	var buf bytes.Buffer
	if dict == "" {
		fmt.Fprintf(&buf, "<</Length %d>>\n", len(data))
	} else {
		fmt.Fprintf(&buf, "<<%s/Length %d>>\n", dict, len(data))
	}
	buf.WriteString("stream\n")
	buf.Write(data)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

// bytes serializes the whole file: header, objects in numeric order, xref
// table with ten-digit offsets, trailer.
func (f *file) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	nums := make([]int, 0, len(f.bodies))
	for n := range f.bodies {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int)
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(f.bodies[n])
		buf.WriteString("\nendobj\n")
	}

	maxNum := 0
	if len(nums) > 0 {
		maxNum = nums[len(nums)-1]
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", maxNum+1, xrefOffset)
	return buf.Bytes()
}

// escapeString escapes the delimiters of a PDF literal string.
func escapeString(b []byte) []byte {
	var out bytes.Buffer
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteByte(c)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
