package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAddressee(t *testing.T) {
	t.Run("returns fallback for empty history", func(t *testing.T) {
		assert.Equal(t, FallbackAddressee, ExtractAddressee(nil))
	})

	t.Run("finds introduction in a human turn", func(t *testing.T) {
		history := []Turn{
			{Speaker: "Human", FromHuman: true, Content: "Hi there, my name is Sam."},
		}
		assert.Equal(t, "Sam", ExtractAddressee(history))
	})

	t.Run("is case-insensitive", func(t *testing.T) {
		history := []Turn{
			{Speaker: "Human", FromHuman: true, Content: "MY NAME IS Morgan, nice to meet you"},
		}
		assert.Equal(t, "Morgan", ExtractAddressee(history))
	})

	t.Run("first introduction wins", func(t *testing.T) {
		history := []Turn{
			{Speaker: "Human", FromHuman: true, Content: "my name is Sam"},
			{Speaker: "Assistant", Content: "Hello Sam!"},
			{Speaker: "Human", FromHuman: true, Content: "actually my name is Alex"},
		}
		assert.Equal(t, "Sam", ExtractAddressee(history))
	})

	t.Run("ignores character turns", func(t *testing.T) {
		history := []Turn{
			{Speaker: "Assistant", Content: "Well, my name is Aria, as you know."},
			{Speaker: "Human", FromHuman: true, Content: "Good to know!"},
		}
		assert.Equal(t, FallbackAddressee, ExtractAddressee(history))
	})
}

func TestAssembleIsDeterministic(t *testing.T) {
	persona := Persona{
		Name:        "Aria",
		Description: "a wandering bard",
		Personality: "warm and curious",
		Lore:        "travels between the free cities",
	}
	history := []Turn{
		{Speaker: "Human", FromHuman: true, Content: "Hello! my name is Sam"},
		{Speaker: "Aria", Content: "Sam! What brings you here?"},
	}
	input := Turn{Speaker: "Human", FromHuman: true, Content: "Just passing through."}

	first := Assemble(persona, history, input)
	second := Assemble(persona, history, input)
	assert.Equal(t, first, second)
}

func TestAssembleEmptyHistory(t *testing.T) {
	persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm"}
	input := Turn{Speaker: "Human", FromHuman: true, Content: "Hello there"}

	payload := Assemble(persona, nil, input)

	assert.Contains(t, payload, "[This is a new conversation that is just starting.]")
	assert.Contains(t, payload, "Human: Hello there")
	assert.True(t, strings.HasSuffix(payload, "Aria:"))
}

func TestAssemblePersonaFallbacks(t *testing.T) {
	t.Run("lore preferred over background", func(t *testing.T) {
		persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm", Lore: "knows the old roads", Background: "grew up at sea"}
		payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})
		assert.Contains(t, payload, "What you know about your world: knows the old roads")
		assert.NotContains(t, payload, "grew up at sea")
	})

	t.Run("background when no lore", func(t *testing.T) {
		persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm", Background: "grew up at sea"}
		payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})
		assert.Contains(t, payload, "Your background: grew up at sea")
	})

	t.Run("neutral default when both empty", func(t *testing.T) {
		persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm"}
		payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})
		assert.Contains(t, payload, "You draw on your own life and experiences")
	})

	t.Run("original character without content source", func(t *testing.T) {
		persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm"}
		payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})
		assert.Contains(t, payload, "You are Aria, an original character.")
	})

	t.Run("content source when present", func(t *testing.T) {
		persona := Persona{Name: "Aria", ContentSource: "The Free Cities Saga", Description: "a bard", Personality: "warm"}
		payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})
		assert.Contains(t, payload, "You are Aria from The Free Cities Saga.")
	})
}

// A user greets a character, introduces themselves, and the next prompt
// addresses them by name.
func TestAssembleUsesIntroducedName(t *testing.T) {
	persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm"}

	first := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "Hi! my name is Sam"})
	assert.Contains(t, first, "speaking to Human.")

	history := []Turn{
		{Speaker: "Human", FromHuman: true, Content: "Hi! my name is Sam"},
		{Speaker: "Aria", Content: "Welcome, Sam!"},
	}
	second := Assemble(persona, history, Turn{Speaker: "Human", FromHuman: true, Content: "Sing me something"})

	assert.Contains(t, second, "Reply as Aria, speaking to Sam.")
	assert.Contains(t, second, "You are currently speaking to Sam.")
}

func TestAssembleHistoryOrder(t *testing.T) {
	persona := Persona{Name: "Aria", Description: "a bard", Personality: "warm"}
	history := []Turn{
		{Speaker: "Human", FromHuman: true, Content: "first"},
		{Speaker: "Aria", Content: "second"},
		{Speaker: "Human", FromHuman: true, Content: "third"},
	}

	payload := Assemble(persona, history, Turn{Speaker: "Human", FromHuman: true, Content: "fourth"})

	iFirst := strings.Index(payload, "Human: first")
	iSecond := strings.Index(payload, "Aria: second")
	iThird := strings.Index(payload, "Human: third")
	iFourth := strings.Index(payload, "Human: fourth")
	require.True(t, iFirst >= 0 && iSecond >= 0 && iThird >= 0 && iFourth >= 0)
	assert.True(t, iFirst < iSecond && iSecond < iThird && iThird < iFourth)
}

func TestAssembleQuotesAndExamples(t *testing.T) {
	persona := Persona{
		Name:             "Aria",
		Description:      "a bard",
		Personality:      "warm",
		Quotes:           []string{"Every road sings."},
		ExampleDialogues: []string{"Human: hello\nAria: well met!"},
	}

	payload := Assemble(persona, nil, Turn{Speaker: "Human", FromHuman: true, Content: "hi"})

	assert.Contains(t, payload, "Things you have said before:\n- Every road sings.")
	assert.Contains(t, payload, "Examples of how you speak:\nHuman: hello\nAria: well met!")
}
