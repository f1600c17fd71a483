package decoder

import (
	"testing"

	"github.com/giorgisio/goav/avcodec"
)

func TestAudioFrameCopyIsDeep(t *testing.T) {
	f := AudioFrame{SampleRate: 48000, Channels: 2, PCM: []float32{0.1, 0.2, 0.3}}
	cp := f.Copy()

	if cp.SampleRate != f.SampleRate || cp.Channels != f.Channels {
		t.Fatalf("expected Copy to preserve metadata, got %+v", cp)
	}
	cp.PCM[0] = 9.9
	if f.PCM[0] == 9.9 {
		t.Error("expected Copy to produce an independent PCM buffer")
	}
}

func TestAudioCodecIDForMapping(t *testing.T) {
	cases := []struct {
		tag  uint32
		want avcodec.CodecId
	}{
		{0x6f707573, avcodec.AV_CODEC_ID_OPUS},
		{0x61616320, avcodec.AV_CODEC_ID_AAC},
		{0x666c6163, avcodec.AV_CODEC_ID_FLAC},
		{0xdeadbeef, avcodec.AV_CODEC_ID_PCM_S16LE},
	}
	for _, c := range cases {
		if got := audioCodecIDFor(c.tag); got != c.want {
			t.Errorf("audioCodecIDFor(%#x) = %v, want %v", c.tag, got, c.want)
		}
	}
}
