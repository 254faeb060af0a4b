package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
)

func TestEncodeStampsTypeAndFieldNames(t *testing.T) {
	b, err := Encode(JSON, &GameOver{Reason: "both_dead", Result: map[string]PlayerResult{
		"p1": {Score: 10, Lines: 1, Alive: false},
		"p2": {Score: 10, Lines: 0, Alive: false},
	}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["type"] != "game_over" {
		t.Fatalf("type = %v", raw["type"])
	}
	if w, ok := raw["winner"]; !ok || w != nil {
		t.Fatalf("draw must carry an explicit null winner, got %v (present=%v)", w, ok)
	}
	res := raw["result"].(map[string]any)
	if _, ok := res["p1"]; !ok {
		t.Fatalf("result missing p1: %v", res)
	}
}

func TestStartOmitsSecondsForEndless(t *testing.T) {
	b, err := Encode(JSON, &Start{Seed: 5, BagRule: "7bag", Match: MatchMode{Mode: "endless"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "seconds") {
		t.Fatalf("endless start should omit seconds: %s", s)
	}
	for _, key := range []string{`"bagRule":"7bag"`, `"dropIntervalMs"`, `"t0_server_ms"`} {
		if !strings.Contains(s, key) {
			t.Fatalf("start missing %s: %s", key, s)
		}
	}
}

func TestDecodeDispatchesVariant(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := Encode(c, &Input{WhenMs: 1234, Ev: "HD"})
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			m, err := Decode(c, b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			in, ok := m.(*Input)
			if !ok {
				t.Fatalf("decoded %T, want *Input", m)
			}
			if in.WhenMs != 1234 || in.Ev != "HD" {
				t.Fatalf("input = %+v", in)
			}
		})
	}
}

func TestDecodeSnapshotMsgpack(t *testing.T) {
	hold := "T"
	left := 12.5
	snap := &Snapshot{
		ServerMs: 99,
		Players: []PlayerView{
			{ID: 1, Board: [][]string{{"", "I"}}, Active: &ActiveView{Kind: "O", X: 3}, Hold: &hold, Next: []string{"S"}},
			{ID: 2, Alive: true},
		},
		TimeLeft: &left,
	}
	b, err := Encode(Msgpack, snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	m, err := Decode(Msgpack, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := m.(*Snapshot)
	if len(got.Players) != 2 || got.Players[0].Board[0][1] != "I" || *got.Players[0].Hold != "T" {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.Players[1].Active != nil || got.TimeLeft == nil || *got.TimeLeft != 12.5 {
		t.Fatalf("optional fields lost: %+v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", "{nope", ErrMalformed},
		{"unknown type", `{"type":"teleport"}`, ErrUnknownType},
		{"missing type", `{"name":"x"}`, ErrUnknownType},
		{"bad field type", `{"type":"input","when_ms":"soon","ev":"L"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(JSON, []byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsProtocolError(err) {
				t.Fatalf("expected protocol error classification")
			}
		})
	}
}

func TestCodecByName(t *testing.T) {
	if c, err := CodecByName(""); err != nil || c.Name() != "json" {
		t.Fatalf("default codec: %v %v", c, err)
	}
	if c, err := CodecByName("msgpack"); err != nil || !c.Binary() {
		t.Fatalf("msgpack codec: %v %v", c, err)
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestStreamConnFraming(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ca, cb := NewStreamConn(a), NewStreamConn(b)

	errc := make(chan error, 1)
	go func() {
		errc <- Send(ca, JSON, &Hello{Name: "alice"})
	}()
	m, err := Recv(cb, JSON)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("send: %v", err)
	}
	if h, ok := m.(*Hello); !ok || h.Name != "alice" {
		t.Fatalf("got %#v", m)
	}
}

func TestStreamConnRejectsOversizedFrame(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)
		_, _ = a.Write(hdr[:])
	}()
	_, err := NewStreamConn(b).ReadFrame()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
	if IsProtocolError(err) {
		t.Fatalf("oversized frame desyncs the stream and must not be treated as recoverable")
	}
}
