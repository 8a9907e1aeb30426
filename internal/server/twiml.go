package server

import (
	"encoding/xml"
	"net/http"
)

// TwiML rendering for the voice webhook responses. Only the verbs the phone
// channel actually speaks: Say, Gather (speech input), Redirect, Hangup.

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     *twimlSay    `xml:"Say,omitempty"`
	Gather  *twimlGather `xml:"Gather,omitempty"`
	Hangup  *struct{}    `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlGather struct {
	Input         string    `xml:"input,attr"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	SpeechTimeout string    `xml:"speechTimeout,attr"`
	Say           *twimlSay `xml:"Say,omitempty"`
}

const twimlVoice = "Polly.Brian"

// gatherSpeech builds the prompt-then-listen response used on both webhook
// endpoints: say text, then gather the caller's next utterance into action.
func gatherSpeech(text, action string) twimlResponse {
	return twimlResponse{
		Gather: &twimlGather{
			Input:         "speech",
			Action:        action,
			Method:        http.MethodPost,
			SpeechTimeout: "auto",
			Say:           &twimlSay{Voice: twimlVoice, Text: text},
		},
	}
}

// sayAndHangup builds a terminal response for unrecoverable call states.
func sayAndHangup(text string) twimlResponse {
	return twimlResponse{
		Say:    &twimlSay{Voice: twimlVoice, Text: text},
		Hangup: &struct{}{},
	}
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(resp)
}
