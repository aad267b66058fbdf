package models

import (
	"encoding/json"
	"testing"
)

func TestSubscriberValidate(t *testing.T) {
	valid := Subscriber{Name: "Dave", Number: "447700900123", Location: "Leeds", RangeMiles: 25}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid subscriber rejected: %v", err)
	}

	cases := []struct {
		name string
		sub  Subscriber
		want error
	}{
		{"missing name", Subscriber{Number: "447700900123", Location: "Leeds", RangeMiles: 25}, ErrEmptySubscriberName},
		{"missing number", Subscriber{Name: "Dave", Location: "Leeds", RangeMiles: 25}, ErrEmptySubscriberNumber},
		{"missing location", Subscriber{Name: "Dave", Number: "447700900123", RangeMiles: 25}, ErrEmptyLocation},
		{"zero range", Subscriber{Name: "Dave", Number: "447700900123", Location: "Leeds"}, ErrInvalidRangeMiles},
		{"huge range", Subscriber{Name: "Dave", Number: "447700900123", Location: "Leeds", RangeMiles: 9000}, ErrInvalidRangeMiles},
	}
	for _, tc := range cases {
		if err := tc.sub.Validate(); err != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestWebhookPayloadDecoding(t *testing.T) {
	raw := `{
		"messages": [
			{"type": "text", "chat_id": "1203@g.us", "chat_name": "Recovery Jobs", "from": "447700900123", "from_name": "Sam", "from_me": false, "text": {"body": "Car recovery needed in Leeds LS1"}},
			{"type": "image", "chat_id": "1203@g.us", "image": {"caption": "breakdown M62"}},
			{"type": "sticker", "chat_id": "1203@g.us"}
		]
	}`
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(payload.Messages))
	}
	if payload.Messages[0].Text == nil || payload.Messages[0].Text.Body != "Car recovery needed in Leeds LS1" {
		t.Error("text body not decoded")
	}
	if payload.Messages[1].Image == nil || payload.Messages[1].Image.Caption != "breakdown M62" {
		t.Error("image caption not decoded")
	}
	// Unknown kinds decode with no content fields set
	m := payload.Messages[2]
	if m.Text != nil || m.Image != nil || m.Video != nil || m.LinkPreview != nil {
		t.Error("unknown kind should carry no content")
	}
}

func TestAPIResponseHelpers(t *testing.T) {
	ok := Success(map[string]int{"messages": 2})
	if ok.Status != APIStatusOK || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}
	withMsg := SuccessWithMessage("Messages processed", nil)
	if withMsg.Status != APIStatusOK || withMsg.Message != "Messages processed" {
		t.Errorf("unexpected success-with-message response: %+v", withMsg)
	}
	bad := Error("boom")
	if bad.Status != APIStatusError || bad.Message != "boom" {
		t.Errorf("unexpected error response: %+v", bad)
	}
}
