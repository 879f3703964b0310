package consensus

import (
	"testing"

	"reef.dev/node/vm"
)

func TestSanitizeUint(t *testing.T) {
	a := vm.NewAllocator()

	mk := func(b []byte) vm.NodePtr {
		n, err := a.NewAtom(b)
		if err != nil {
			t.Fatalf("NewAtom: %v", err)
		}
		return n
	}

	cases := []struct {
		name     string
		bytes    []byte
		maxSize  int
		want     uint64
		overflow sanitized
		wantErr  bool
	}{
		{name: "empty_is_zero", bytes: nil, maxSize: 8, want: 0, overflow: sanitizedOk},
		{name: "small", bytes: []byte{0x7f}, maxSize: 8, want: 127, overflow: sanitizedOk},
		{name: "padded_high", bytes: []byte{0x00, 0x80}, maxSize: 8, want: 128, overflow: sanitizedOk},
		{name: "max_u64", bytes: []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, maxSize: 8, want: ^uint64(0), overflow: sanitizedOk},
		{name: "negative", bytes: []byte{0xff}, maxSize: 8, overflow: sanitizedNegativeOverflow},
		{name: "negative_padded", bytes: []byte{0xff, 0xff, 0x00}, maxSize: 8, overflow: sanitizedNegativeOverflow},
		{name: "single_zero", bytes: []byte{0x00}, maxSize: 8, wantErr: true},
		{name: "redundant_pad", bytes: []byte{0x00, 0x7f}, maxSize: 8, wantErr: true},
		{name: "many_zeros", bytes: []byte{0x00, 0x00, 0x80}, maxSize: 8, wantErr: true},
		{name: "too_big", bytes: []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 0}, maxSize: 8, overflow: sanitizedPositiveOverflow},
		{name: "u32_overflow", bytes: []byte{0x01, 0, 0, 0, 0}, maxSize: 4, overflow: sanitizedPositiveOverflow},
		{name: "u32_ok", bytes: []byte{0x00, 0xff, 0xff, 0xff, 0xff}, maxSize: 4, want: 0xffffffff, overflow: sanitizedOk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, overflow, err := sanitizeUint(a, mk(tc.bytes), tc.maxSize, ERR_INVALID_COIN_AMOUNT)
			if tc.wantErr {
				requireErrCode(t, err, ERR_INVALID_COIN_AMOUNT)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if overflow != tc.overflow {
				t.Fatalf("overflow = %d, want %d", overflow, tc.overflow)
			}
			if overflow == sanitizedOk && v != tc.want {
				t.Fatalf("value = %d, want %d", v, tc.want)
			}
		})
	}

	// a pair is never a valid integer
	p, _ := a.NewPair(a.Nil(), a.Nil())
	_, _, err := sanitizeUint(a, p, 8, ERR_INVALID_COIN_AMOUNT)
	requireErrCode(t, err, ERR_INVALID_COIN_AMOUNT)
}

// P7: sanitizeUint is the inverse of the minimal encoder over the
// representable range.
func TestSanitizeRoundTrip(t *testing.T) {
	a := vm.NewAllocator()
	for _, v := range []uint64{0, 1, 127, 128, 255, 256, 1 << 32, ^uint64(0)} {
		n, err := a.NewU64(v)
		if err != nil {
			t.Fatalf("NewU64: %v", err)
		}
		got, overflow, err := sanitizeUint(a, n, 8, ERR_INVALID_COIN_AMOUNT)
		if err != nil || overflow != sanitizedOk {
			t.Fatalf("sanitize(%d): %v / %d", v, err, overflow)
		}
		if got != v {
			t.Fatalf("round trip: got %d want %d", got, v)
		}
	}
}
