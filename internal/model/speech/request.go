package speech

// ASRRequest 语音识别请求。音频已经落盘为临时文件。
type ASRRequest struct {
	AudioPath string `json:"-"`
	Filename  string `json:"filename"`
	Format    string `json:"format"` // mp3, wav, webm, etc.
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"` // mp3, opus, etc.
}

// SynthesizeRequest is the body of POST /tts.
type SynthesizeRequest struct {
	Text string `json:"text"`
}
