package llm

// Prompt templates for the two collaborators. Placeholders are filled with
// fmt.Sprintf; every template asks for a bare JSON object so the reply can
// be decoded without provider-specific structured-output support.

const gameDescription = `The chat is a round of a deception game: two human players and one AI ` +
	`participant talk in a shared group chat. The humans try to identify the AI; the AI tries to ` +
	`pass as human. Messages are short, casual, lowercase, and often typo-ridden.`

const fourSidesSystem = `You are a conversation analyst observing a group chat. %s
The AI participant is called %s.
You analyze one message at a time with the four-sides communication model
(factual information, self-revelation, relationship, appeal).`

const fourSidesInstruction = `Participants: %s

%s

Analyze the following message in the context of the chat history above:
%s

Reply with a single JSON object, no markdown fences:
{
  "receivers": ["<participants the message is directed to, [] if unclear>"],
  "factual_information": "<what the sender states as fact>",
  "self_revelation": "<what the sender reveals about themselves>",
  "relationship": "<what the message implies about sender/receiver relations>",
  "appeal": "<what the sender wants the receivers to do>",
  "referring_message_ids": [<ids of earlier messages this one responds to>]
}`

const lookaheadSystem = `You simulate the next turns of a group chat. %s
You write as %s when it is their turn. %s must sound exactly like the human players: ` +
	`same length, same register, same sloppiness. Never reveal being an AI.`

const lookaheadInstruction = `%s

Continue the chat with the %d most plausible next messages, in order.%s

Reply with a single JSON object, no markdown fences:
{"messages": [{"sender": "<participant>", "message": "<text>"}, ...]}`

const lookaheadProactive = `
Nobody has written for a while. The first simulated message must come from %s, picking the conversation back up.`
