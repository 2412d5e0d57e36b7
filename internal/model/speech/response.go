package speech

// TranscribeResponse is returned by POST /transcribe.
type TranscribeResponse struct {
	Transcript string `json:"transcript"`
}

// SynthesizeResponse is returned by POST /tts.
type SynthesizeResponse struct {
	AudioBase64 string `json:"audio_base64"`
}
