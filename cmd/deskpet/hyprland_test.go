package main

import "testing"

func TestParseCursorPos(t *testing.T) {
	cases := []struct {
		resp    string
		x, y    float64
		wantErr bool
	}{
		{resp: "960, 540", x: 960, y: 540},
		{resp: "0, 0", x: 0, y: 0},
		{resp: "1234,567\n", x: 1234, y: 567},
		{resp: "  12 ,  34  ", x: 12, y: 34},
		{resp: "garbage", wantErr: true},
		{resp: "1, 2, 3", wantErr: true},
		{resp: "a, 5", wantErr: true},
		{resp: "5, b", wantErr: true},
		{resp: "", wantErr: true},
	}

	for _, c := range cases {
		x, y, err := parseCursorPos(c.resp)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseCursorPos(%q) = (%v, %v), want error", c.resp, x, y)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCursorPos(%q): %v", c.resp, err)
			continue
		}
		if x != c.x || y != c.y {
			t.Errorf("parseCursorPos(%q) = (%v, %v), want (%v, %v)", c.resp, x, y, c.x, c.y)
		}
	}
}
