package main

import (
	"strings"
	"testing"
	"time"
)

func TestSipDate(t *testing.T) {
	d := sipDate()
	if len(d) != 18 {
		t.Fatalf("sipDate() => %q; want 18 characters", d)
	}
	if d[8:12] != "    " {
		t.Errorf("sipDate() timezone positions => %q; want four blanks", d[8:12])
	}
	if _, err := time.Parse(sipDateLayout, d); err != nil {
		t.Errorf("sipDate() => %q does not parse back: %v", d, err)
	}
}

func TestBoolEncodings(t *testing.T) {
	var tests = []struct {
		got, want string
	}{
		{sipbool(true), "Y"},
		{sipbool(false), "N"},
		{denied(true), " "},
		{denied(false), "Y"},
		{boolspace(true), "Y"},
		{boolspace(false), " "},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q; want %q", tt.got, tt.want)
		}
	}
}

func TestFieldEmission(t *testing.T) {
	s := &Session{Delimiter: '|'}
	if got := s.addField(fidPatronID, "djfiander"); got != "AAdjfiander|" {
		t.Errorf("addField => %q; want %q", got, "AAdjfiander|")
	}
	if got := s.addField(fidTitleID, ""); got != "AJ|" {
		t.Errorf("addField with empty value => %q; want %q", got, "AJ|")
	}
	if got := s.maybeAdd(fidScreenMsg, ""); got != "" {
		t.Errorf("maybeAdd with empty value => %q; want empty", got)
	}
	if got := s.maybeAdd(fidScreenMsg, "hi"); got != "AFhi|" {
		t.Errorf("maybeAdd => %q; want %q", got, "AFhi|")
	}
}

func TestAddCount(t *testing.T) {
	var tests = []struct {
		in   int
		want string
	}{
		{0, "0000"},
		{7, "0007"},
		{42, "0042"},
		{9999, "9999"},
		{123456, "9999"},
		{-3, "0000"},
	}
	for _, tt := range tests {
		if got := addCount("test", tt.in); got != tt.want {
			t.Errorf("addCount(%d) => %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestChecksum(t *testing.T) {
	if got := checksum("09N20060102    08423620060102    084236APCheckin Bar Code Reader|AO3|AB1565921879|ACterminal password|AY2AZ"); got != "E217" {
		t.Errorf("checksum => %q; want %q", got, "E217")
	}
	// The checksum makes the whole frame sum to zero mod 0x10000.
	framed := "941AY3AZ"
	framed += checksum(framed)
	if !verifyCksum(framed) {
		t.Errorf("verifyCksum(%q) => false; want true", framed)
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	msgs := []string{
		"941",
		"2300120060101    084237AOUWOLS|AAdjfiander|",
		"98YYYYNN10000320060101    0842372.00AOUWOLS|",
	}
	for _, msg := range msgs {
		for seq := byte('0'); seq <= '9'; seq++ {
			framed := appendTrailer(msg, seq)
			if !hasTrailer(framed) {
				t.Errorf("appendTrailer(%q, %q) => %q; trailer not detected", msg, seq, framed)
			}
			if !verifyCksum(framed) {
				t.Errorf("verifyCksum(appendTrailer(%q, %q)) => false; want true", msg, seq)
			}
			if stripTrailer(framed) != msg {
				t.Errorf("stripTrailer(%q) => %q; want %q", framed, stripTrailer(framed), msg)
			}
		}
	}
}

func TestVerifyCksumRejectsCorruption(t *testing.T) {
	framed := appendTrailer("2300120060101    084237AOUWOLS|AAdjfiander|", '3')
	corrupt := strings.Replace(framed, "djfiander", "djfiandex", 1)
	if verifyCksum(corrupt) {
		t.Errorf("verifyCksum accepted a corrupted frame: %q", corrupt)
	}
}

func TestPatronStatusString(t *testing.T) {
	p := &demoPatron{id: "djfiander", name: "David J. Fiander"}
	if got := patronStatusString(p); got != "              " {
		t.Errorf("patronStatusString => %q; want 14 blanks", got)
	}
	p.Block(true, "Card retained")
	got := patronStatusString(p)
	if len(got) != 14 {
		t.Fatalf("patronStatusString => %d characters; want 14", len(got))
	}
	if got[:4] != "YYYY" {
		t.Errorf("blocked patron privileges => %q; want %q", got[:4], "YYYY")
	}
	if got[4] != 'Y' {
		t.Errorf("card retained should set the lost-card flag, got %q", got)
	}
}

func BenchmarkChecksum(b *testing.B) {
	msg := "63012 20060101    084237AOUWOLS|AAdjfiander|AD6789|AY1AZ"
	for i := 0; i < b.N; i++ {
		checksum(msg)
	}
}
