package realtime

import (
	"encoding/binary"
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/marketpulse/voice-core/core/audio"
)

const (
	opusChannels = 1
	// opusFrameSize is one 20ms codec frame, which matches the capture
	// device's period size.
	opusFrameSize = audio.DefaultSampleRate / 50
	// maxOpusPacket is the codec's maximum packet size.
	maxOpusPacket = 1275
	// maxDecodedFrame holds the longest frame the codec may emit (60ms).
	maxDecodedFrame = audio.DefaultSampleRate * 60 / 1000
)

// opusEncoder turns raw S16LE capture chunks into 20ms opus packets for
// the uplink track. Device chunks do not have to align with the codec
// frame size; leftover samples carry over to the next chunk.
type opusEncoder struct {
	encoder *opus.Encoder
	pending []int16
	packet  []byte
}

func newOpusEncoder() (*opusEncoder, error) {
	encoder, err := opus.NewEncoder(audio.DefaultSampleRate, opusChannels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create uplink encoder: %w", err)
	}
	return &opusEncoder{encoder: encoder, packet: make([]byte, maxOpusPacket)}, nil
}

// encode appends one captured chunk and calls emit with every full codec
// frame it completes.
func (e *opusEncoder) encode(chunk []byte, emit func(packet []byte)) error {
	e.pending = append(e.pending, pcmFromBytes(chunk)...)
	for len(e.pending) >= opusFrameSize {
		n, err := e.encoder.Encode(e.pending[:opusFrameSize], e.packet)
		if err != nil {
			return fmt.Errorf("failed to encode uplink frame: %w", err)
		}
		e.pending = e.pending[opusFrameSize:]
		emit(e.packet[:n])
	}
	return nil
}

// opusDecoder turns received opus packets back into S16LE for the
// playback device.
type opusDecoder struct {
	decoder *opus.Decoder
	pcm     []int16
}

func newOpusDecoder() (*opusDecoder, error) {
	decoder, err := opus.NewDecoder(audio.DefaultSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to create downlink decoder: %w", err)
	}
	return &opusDecoder{decoder: decoder, pcm: make([]int16, maxDecodedFrame)}, nil
}

func (d *opusDecoder) decode(packet []byte) ([]byte, error) {
	n, err := d.decoder.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to decode remote frame: %w", err)
	}
	return bytesFromPCM(d.pcm[:n*opusChannels]), nil
}

func pcmFromBytes(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}

func bytesFromPCM(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(sample))
	}
	return data
}
