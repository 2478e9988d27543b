/*
NAME
  lex_test.go

DESCRIPTION
  lex_test.go provides testing for the MPEG-1/2 video lexer.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mpeg12

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type chunkWriter [][]byte

func (w *chunkWriter) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	*w = append(*w, b)
	return len(p), nil
}

func TestLex(t *testing.T) {
	pic := func(payload ...byte) []byte {
		return append([]byte{0x00, 0x00, 0x01, 0x00}, payload...)
	}
	seq := []byte{0x00, 0x00, 0x01, 0xb3, 0x10, 0x01, 0x02}
	slice := []byte{0x00, 0x00, 0x01, 0x01, 0xaa, 0xbb}

	tests := []struct {
		name string
		in   [][]byte
		want [][]byte
	}{
		{
			name: "two pictures",
			in:   [][]byte{pic(0x11), slice, pic(0x22), slice},
			want: [][]byte{
				append(pic(0x11), slice...),
				append(pic(0x22), slice...),
			},
		},
		{
			name: "sequence header groups with following picture",
			in:   [][]byte{seq, pic(0x11), slice, pic(0x22), slice},
			want: [][]byte{
				append(append(append([]byte{}, seq...), pic(0x11)...), slice...),
				append(pic(0x22), slice...),
			},
		},
	}

	for _, test := range tests {
		var in []byte
		for _, b := range test.in {
			in = append(in, b...)
		}
		var got chunkWriter
		err := Lex(&got, bytes.NewReader(in), 0)
		if err != nil && err != io.EOF {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if !cmp.Equal([][]byte(got), test.want) {
			t.Errorf("%s: unexpected output: %v", test.name, cmp.Diff([][]byte(got), test.want))
		}
	}
}
