package config

type WorkerKeyStruct struct {
	TranscodeAudioQueue string
}

var WorkerKey = &WorkerKeyStruct{
	TranscodeAudioQueue: "transcode_audio_queue",
}
