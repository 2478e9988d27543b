/*
DESCRIPTION
  vlctab_test.go provides testing of the VLC lookup table construction.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mpeg12dec

import "testing"

func TestScanTableRoundTrip(t *testing.T) {
	for s, name := range map[int]string{scanZigzag: "zigzag", scanAlt: "alternate"} {
		var inverse [64]int
		for i := range inverse {
			inverse[i] = -1
		}
		for i, pos := range scanTables[s] {
			if inverse[pos] != -1 {
				t.Errorf("%s scan position %d appears twice", name, pos)
			}
			inverse[pos] = i
		}
		for i := 0; i < 64; i++ {
			if inverse[i] == -1 {
				t.Errorf("%s scan misses position %d", name, i)
				continue
			}
			if got := scanTables[s][inverse[i]]; int(got) != i {
				t.Errorf("%s scan round trip failed at %d: got %d", name, i, got)
			}
		}
	}
}

func TestMbAddrIncTable(t *testing.T) {
	tests := []struct {
		code string
		want int16
	}{
		{"1", 1},
		{"011", 2},
		{"010", 3},
		{"0011", 4},
		{"0010", 5},
		{"0001 1", 6},
		{"0001 0", 7},
		{"0000 111", 8},
		{"0000 110", 9},
		{"0000 0110", 15},
		{"0000 0011 000", 33},
		{"0000 0001 000", mbAddrIncEscape},
		{"0000 0001 111", mbAddrIncStuffing},
	}
	for _, test := range tests {
		n := codeLen(test.code)
		idx := 0
		for _, c := range test.code {
			if c == '0' || c == '1' {
				idx = idx<<1 | int(c-'0')
			}
		}
		idx <<= uint(11 - n)
		e := mbAddrIncTable[idx]
		if e.val != test.want {
			t.Errorf("code %q: got value %d, want %d", test.code, e.val, test.want)
		}
		if int(e.len) != n {
			t.Errorf("code %q: got length %d, want %d", test.code, e.len, n)
		}
	}
}

func codeLen(code string) int {
	n := 0
	for _, c := range code {
		if c == '0' || c == '1' {
			n++
		}
	}
	return n
}

func TestCodedPatternTable(t *testing.T) {
	tests := []struct {
		code string
		want int16
	}{
		{"111", 60},
		{"1101", 4},
		{"1100", 8},
		{"1011", 16},
		{"1010", 32},
		{"0001 1111", 7},
		{"0000 0011 1", 31},
		{"0000 0000 1", 0},
	}
	for _, test := range tests {
		n := codeLen(test.code)
		idx := 0
		for _, c := range test.code {
			if c == '0' || c == '1' {
				idx = idx<<1 | int(c-'0')
			}
		}
		idx <<= uint(9 - n)
		e := codedPatternTable[idx]
		if e.val != test.want {
			t.Errorf("code %q: got cbp %d, want %d", test.code, e.val, test.want)
		}
		if int(e.len) != n {
			t.Errorf("code %q: got length %d, want %d", test.code, e.len, n)
		}
	}
}

func TestMBTypeTables(t *testing.T) {
	// P picture, table B.3: code 1 is MC+coded, 001 is MC only.
	if e := mbTypeTable[0][0x20]; e.val != mbMotionForward|mbPattern || e.len != 1 {
		t.Errorf("unexpected P type for code 1: %+v", e)
	}
	if e := mbTypeTable[0][0x08]; e.val != mbMotionForward || e.len != 3 {
		t.Errorf("unexpected P type for code 001: %+v", e)
	}
	// B picture, table B.4: code 10 is backward+forward, 011 backward+coded.
	if e := mbTypeTable[1][0x20]; e.val != mbMotionForward|mbMotionBackward || e.len != 2 {
		t.Errorf("unexpected B type for code 10: %+v", e)
	}
	if e := mbTypeTable[1][0x18]; e.val != mbMotionBackward|mbPattern || e.len != 3 {
		t.Errorf("unexpected B type for code 011: %+v", e)
	}
	for tab := 0; tab < 2; tab++ {
		if e := mbTypeTable[tab][0]; e.val != mbError {
			t.Errorf("table %d code 0 should be an error, got %+v", tab, e)
		}
	}
}

func TestDCTCoeffTables(t *testing.T) {
	// Code 10 (run 0, level 1) resolves through the short tables, so
	// probe a few long codes in the built table.
	tests := []struct {
		table int
		code  uint32 // 16-bit show value
		run   int8
		level int8
		len   int8
	}{
		{0, 0x0400, dctEscape, 0, 6}, // 000001
		{0, 0x0800, 2, 2, 7},         // 0000100
		{0, 0x3000, 4, 1, 5},         // 00110
		{0, 0x0200, 16, 1, 10},       // 0000001000
		{1, 0x1400, 0, 6, 6},         // 000101 (table B.15)
		{1, 0x0200, 5, 2, 9},         // 000000100 (table B.15)
	}
	for i, test := range tests {
		e := dctCoeffTables[test.table][test.code]
		if e.run != test.run || e.level != test.level || e.len != test.len {
			t.Errorf("unexpected entry for test %d: got %+v", i, e)
		}
	}
}
