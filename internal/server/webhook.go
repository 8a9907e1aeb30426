package server

import (
	"log/slog"
	"net/http"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// speechAction is where Gather posts the transcribed utterance.
const speechAction = "/webhook/process-speech"

// handleVoice answers the initial Twilio call webhook: greet the caller and
// gather their first utterance. No orchestrator work happens here.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	from := r.PostFormValue("From")
	slog.Info("incoming call", "callSid", callSid, "from", from)

	writeTwiML(w, gatherSpeech(s.orch.Persona().Greeting(), speechAction))
}

// handleProcessSpeech runs one transcribed utterance through the
// orchestrator and speaks the outcome, then gathers again so the caller can
// continue. The call SID keys the conversation, so one phone call is one
// context.
func (s *Server) handleProcessSpeech(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	from := r.PostFormValue("From")
	speech := r.PostFormValue("SpeechResult")

	if callSid == "" {
		writeTwiML(w, sayAndHangup("I'm sorry, something went wrong with this call. Goodbye."))
		return
	}

	key := "phone:" + callSid
	if !s.allowConversation(key) {
		writeTwiML(w, sayAndHangup("You're sending requests a little too quickly. Please call back in a few minutes."))
		return
	}

	if speech == "" {
		// Gather timed out without speech; prompt again.
		writeTwiML(w, gatherSpeech("I didn't catch that. Could you say it again?", speechAction))
		return
	}

	out, err := s.orch.Process(r.Context(), schema.Request{
		Message:         speech,
		ConversationKey: key,
		Identity:        schema.Identity{UserID: from, Phone: from, Channel: schema.ChannelPhone},
	})
	if err != nil {
		// Validation failures on the phone channel read as a reprompt, the
		// caller cannot fix a 400.
		slog.Warn("speech rejected", "callSid", callSid, "err", err)
		writeTwiML(w, gatherSpeech("I didn't catch that. Could you say it again?", speechAction))
		return
	}

	writeTwiML(w, gatherSpeech(out.Text, speechAction))
}
