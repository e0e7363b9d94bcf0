package gateway

import (
	"errors"
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"id\":\"1\"}\n```", want: `{"id":"1"}`},
		{name: "bare fence", in: "```\n{\"id\":\"1\"}\n```", want: `{"id":"1"}`},
		{name: "single line", in: "```json{\"id\":\"1\"}```", want: `{"id":"1"}`},
		{name: "no fence", in: "  {\"id\":\"1\"} ", want: `{"id":"1"}`},
		{name: "trailing only", in: "{\"id\":\"1\"}\n```", want: `{"id":"1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFence(tc.in); got != tc.want {
				t.Fatalf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseReply_FencedOutput(t *testing.T) {
	reply, err := ParseReply([]byte(`{"output":"` + "```json\\n{\\\"id\\\":\\\"1\\\",\\\"response\\\":\\\"done\\\"}\\n```" + `"}`))
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.ID != "1" || string(reply.Response) != `"done"` {
		t.Fatalf("unexpected reply: %#v", reply)
	}
	if string(reply.Payload) != `{"id":"1","response":"done"}` {
		t.Fatalf("unexpected payload: %s", reply.Payload)
	}
}

func TestParseReply_PlainAndWrappedObjects(t *testing.T) {
	reply, err := ParseReply([]byte(`{"id":17,"content":{"a":1}}`))
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.ID != "17" || string(reply.Response) != `{"a":1}` {
		t.Fatalf("unexpected reply: %#v", reply)
	}

	reply, err = ParseReply([]byte(`[{"output":"{\"id\":\"x\",\"response\":[1,2]}"}]`))
	if err != nil {
		t.Fatalf("ParseReply wrapped failed: %v", err)
	}
	if reply.ID != "x" || string(reply.Response) != `[1,2]` {
		t.Fatalf("unexpected wrapped reply: %#v", reply)
	}

	reply, err = ParseReply([]byte(`{"status":"queued"}`))
	if err != nil {
		t.Fatalf("ParseReply without id failed: %v", err)
	}
	if reply.ID != "" || reply.Response != nil {
		t.Fatalf("expected empty id/response, got %#v", reply)
	}
}

func TestParseReply_Malformed(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`"just a string"`,
		`{"output":"` + "```json\\n[oops\\n```" + `"}`,
		`{"output":"42"}`,
	} {
		if _, err := ParseReply([]byte(body)); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("ParseReply(%s): expected ErrMalformedReply, got %v", body, err)
		}
	}
}
