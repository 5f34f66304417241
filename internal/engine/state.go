package engine

// State is the complete snapshot of one character as returned by the API.
// It is replaced wholesale after every executed task and never merged.
type State map[string]any

// Name returns the character name carried by the snapshot.
func (s State) Name() string {
	name, _ := s["name"].(string)
	return name
}

// Payload holds the non-reserved keys of an action response, e.g. "fight",
// "details" or "item".
type Payload map[string]any

// Reserved response keys. They are consumed by Execute and never appear in a
// Payload.
const (
	KeyCharacter = "character"
	KeyCooldown  = "cooldown"
)
