package policy

import "testing"

func TestDefault_FormatRemoteTopic(t *testing.T) {
	p := Default{}
	if got := p.FormatRemoteTopic("east", "orders"); got != "east.orders" {
		t.Fatalf("got %q", got)
	}

	custom := Default{Separator: "_"}
	if got := custom.FormatRemoteTopic("east", "orders"); got != "east_orders" {
		t.Fatalf("got %q", got)
	}
}

func TestDefault_IsHeartbeatsTopic(t *testing.T) {
	p := Default{}
	cases := map[string]bool{
		"heartbeats":        true,
		"east.heartbeats":   true,
		"east.orders":       false,
		"heartbeats.orders": false,
	}
	for topic, want := range cases {
		if got := p.IsHeartbeatsTopic(topic); got != want {
			t.Errorf("IsHeartbeatsTopic(%q) = %v, want %v", topic, got, want)
		}
	}
}

func TestDefault_IsCheckpointsTopic(t *testing.T) {
	p := Default{}
	if !p.IsCheckpointsTopic("east.checkpoints.internal") {
		t.Fatal("expected east.checkpoints.internal to be a checkpoints topic")
	}
	if p.IsCheckpointsTopic("east.orders") {
		t.Fatal("did not expect east.orders to be a checkpoints topic")
	}
}

func TestDefault_IsMM2InternalTopic(t *testing.T) {
	p := Default{}
	internal := []string{
		"east-offset-syncs.internal",
		"east.checkpoints.internal",
		"east.heartbeats",
		"heartbeats",
	}
	for _, topic := range internal {
		if !p.IsMM2InternalTopic(topic) {
			t.Errorf("expected %q to be internal", topic)
		}
	}
	if p.IsMM2InternalTopic("east.orders") {
		t.Fatal("did not expect east.orders to be internal")
	}
}

func TestDefault_IsReplicatedTopic(t *testing.T) {
	p := Default{}
	if !p.IsReplicatedTopic("east.orders") {
		t.Fatal("expected east.orders to be recognized as already replicated")
	}
	if p.IsReplicatedTopic("orders") {
		t.Fatal("did not expect a bare topic name to be recognized as replicated")
	}
	if p.IsReplicatedTopic(".orders") {
		t.Fatal("a leading separator with no alias should not count as replicated")
	}
}
