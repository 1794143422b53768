package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"autocraft.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	actSchema := compile("act.schema.json")
	craftSchema := compile("craft.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"bench",
	  "max_queue":8
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"3f0c2d4e-8f9b-4c1a-9a7e-2b7f5d1c0e11",
	  "world_id":"WORKSHOP",
	  "tick":0,
	  "catalogs":{"items_digest":"deadbeef","item_count":30,"recipes_digest":"deadbeef","recipe_count":15}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "act_id":"a1",
	  "kind":"PLACE_BLOCK",
	  "pos":[1,0,0],
	  "block":"HOPPER",
	  "facing":[-1,0,0]
	}`), &act)
	validate(actSchema, act)

	var craft any
	_ = json.Unmarshal([]byte(`{
	  "type":"CRAFT",
	  "protocol_version":"1.0",
	  "tick":12,
	  "attempt_id":"att-1",
	  "station_id":"CRAFTING_TABLE@0,0,0",
	  "target":"STICK",
	  "committed":true,
	  "recipe_id":"stick",
	  "output":{"item":"STICK","count":4},
	  "removed":{"PLANK":2}
	}`), &craft)
	validate(craftSchema, craft)
}

func TestSchemas_GoMessagesConform(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	roundTrip := func(v any) any {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return out
	}

	fail := protocol.CraftMsg{
		Type:            protocol.TypeCraft,
		ProtocolVersion: protocol.Version,
		Tick:            3,
		AttemptID:       "att-2",
		StationID:       "CRAFTING_TABLE@0,0,0",
		Target:          "CAKE",
		Code:            protocol.ErrNoResource,
		RecipeID:        "cake",
	}
	if err := compile("craft.schema.json").Validate(roundTrip(fail)); err != nil {
		t.Fatalf("failed CRAFT does not conform: %v", err)
	}

	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ActID:           "a2",
		Kind:            protocol.ActSetPower,
		Pos:             [3]int{0, 0, 2},
		Power:           15,
	}
	if err := compile("act.schema.json").Validate(roundTrip(act)); err != nil {
		t.Fatalf("SET_POWER ACT does not conform: %v", err)
	}
}
