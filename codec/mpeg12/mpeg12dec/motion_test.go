/*
DESCRIPTION
  motion_test.go provides testing for the motion compensation kernels.

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

import (
	"fmt"
	"testing"
)

// All kernels are idempotent on constant input: if every source byte is
// C, every predicted byte is C, for every half-pel combination and for
// the averaging forms when the destination also holds C.
func TestKernelsConstantInput(t *testing.T) {
	const stride = 32
	sizes := []struct{ w, h int }{{16, 16}, {16, 8}, {8, 8}, {8, 4}}

	for _, c := range []byte{0, 1, 127, 128, 255} {
		src := make([]byte, stride*20)
		for i := range src {
			src[i] = c
		}
		for _, size := range sizes {
			for hx := 0; hx < 2; hx++ {
				for hy := 0; hy < 2; hy++ {
					for _, avg := range []bool{false, true} {
						name := fmt.Sprintf("c=%d %dx%d hx=%d hy=%d avg=%v",
							c, size.w, size.h, hx, hy, avg)
						dst := make([]byte, stride*20)
						for i := range dst {
							dst[i] = c
						}
						motionComponent(src, 0, dst, 0, size.w, size.h,
							stride, stride, hx == 1, hy == 1, avg)
						for y := 0; y < size.h; y++ {
							for x := 0; x < size.w; x++ {
								if got := dst[y*stride+x]; got != c {
									t.Fatalf("%s: unexpected output at (%d,%d): got %d, want %d",
										name, x, y, got, c)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestKernelHalfPelHorizontal(t *testing.T) {
	const stride = 16
	src := make([]byte, stride*2)
	src[0], src[1], src[2] = 10, 20, 31

	dst := make([]byte, stride*2)
	motionComponent(src, 0, dst, 0, 8, 1, stride, stride, true, false, false)

	// Rounded averages of horizontal neighbours.
	if dst[0] != 15 {
		t.Errorf("unexpected interpolation: got %d, want 15", dst[0])
	}
	if dst[1] != 26 { // (20+31+1)>>1
		t.Errorf("unexpected interpolation: got %d, want 26", dst[1])
	}
}

func TestKernelHalfPelVertical(t *testing.T) {
	const stride = 16
	src := make([]byte, stride*3)
	src[0] = 10
	src[stride] = 21

	dst := make([]byte, stride*3)
	motionComponent(src, 0, dst, 0, 8, 1, stride, stride, false, true, false)
	if dst[0] != 16 { // (10+21+1)>>1
		t.Errorf("unexpected interpolation: got %d, want 16", dst[0])
	}
}

func TestKernelBilinear(t *testing.T) {
	const stride = 16
	src := make([]byte, stride*3)
	src[0], src[1] = 10, 20
	src[stride], src[stride+1] = 30, 41

	dst := make([]byte, stride*3)
	motionComponent(src, 0, dst, 0, 8, 1, stride, stride, true, true, false)
	if dst[0] != 25 { // (10+20+30+41+2)>>2
		t.Errorf("unexpected interpolation: got %d, want 25", dst[0])
	}
}

func TestKernelAverage(t *testing.T) {
	const stride = 16
	src := make([]byte, stride*2)
	src[0] = 100

	dst := make([]byte, stride*2)
	dst[0] = 51
	motionComponent(src, 0, dst, 0, 8, 1, stride, stride, false, false, true)
	if dst[0] != 76 { // (51+100+1)>>1
		t.Errorf("unexpected average: got %d, want 76", dst[0])
	}
}
