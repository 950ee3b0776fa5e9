package voiceprint

import (
	"math"
	"math/cmplx"
)

// FbankConfig configures mel filterbank feature extraction.
type FbankConfig struct {
	SampleRate  int     // Input sample rate in Hz (default: 16000)
	NumMels     int     // Number of mel filterbank channels (default: 80)
	FrameLength int     // Frame length in samples (default: 400 = 25ms @ 16kHz)
	FrameShift  int     // Frame shift in samples (default: 160 = 10ms @ 16kHz)
	PreEmphasis float64 // Pre-emphasis coefficient (default: 0.97)
	EnergyFloor float64 // Floor for log energy (default: 1e-10)
}

// DefaultFbankConfig returns the default configuration for 16kHz audio.
func DefaultFbankConfig() FbankConfig {
	return FbankConfig{
		SampleRate:  16000,
		NumMels:     80,
		FrameLength: 400,  // 25ms @ 16kHz
		FrameShift:  160,  // 10ms @ 16kHz
		PreEmphasis: 0.97,
		EnergyFloor: 1e-10,
	}
}

// ComputeFbank extracts log mel filterbank features from PCM16 audio.
//
// Input: PCM16 signed little-endian audio bytes at the configured sample rate.
// Output: 2D slice [numFrames][numMels] of log mel filterbank energies, or
// nil when the audio is shorter than one frame.
func ComputeFbank(audio []byte, cfg FbankConfig) [][]float32 {
	return newFbankPlan(cfg).compute(pcm16ToFloat(audio))
}

// fbankPlan holds the window and filterbank for one configuration so that
// repeated extraction does not rebuild them.
type fbankPlan struct {
	cfg        FbankConfig
	fftSize    int
	window     []float64
	filterbank [][]float64
}

func newFbankPlan(cfg FbankConfig) *fbankPlan {
	def := DefaultFbankConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.NumMels <= 0 {
		cfg.NumMels = def.NumMels
	}
	if cfg.FrameLength <= 1 {
		cfg.FrameLength = def.FrameLength
	}
	if cfg.FrameShift <= 0 {
		cfg.FrameShift = def.FrameShift
	}
	if cfg.EnergyFloor <= 0 {
		cfg.EnergyFloor = def.EnergyFloor
	}
	fftSize := nextPow2(cfg.FrameLength)
	return &fbankPlan{
		cfg:        cfg,
		fftSize:    fftSize,
		window:     hammingWindow(cfg.FrameLength),
		filterbank: melFilterbank(cfg.NumMels, fftSize, cfg.SampleRate),
	}
}

// compute runs pre-emphasis, framing, Hamming windowing, FFT power
// spectrum, mel filtering and log compression. samples is modified.
func (p *fbankPlan) compute(samples []float64) [][]float32 {
	cfg := p.cfg
	n := len(samples)
	if n < cfg.FrameLength {
		return nil
	}

	if cfg.PreEmphasis > 0 {
		for i := n - 1; i > 0; i-- {
			samples[i] -= cfg.PreEmphasis * samples[i-1]
		}
		samples[0] *= 1.0 - cfg.PreEmphasis
	}

	numFrames := (n-cfg.FrameLength)/cfg.FrameShift + 1
	halfFFT := p.fftSize/2 + 1

	result := make([][]float32, numFrames)
	fftBuf := make([]complex128, p.fftSize)
	powerSpec := make([]float64, halfFFT)

	for f := 0; f < numFrames; f++ {
		offset := f * cfg.FrameShift

		clear(fftBuf)
		for i := 0; i < cfg.FrameLength; i++ {
			fftBuf[i] = complex(samples[offset+i]*p.window[i], 0)
		}
		fft(fftBuf)

		for k := 0; k < halfFFT; k++ {
			r := real(fftBuf[k])
			im := imag(fftBuf[k])
			powerSpec[k] = r*r + im*im
		}

		frame := make([]float32, cfg.NumMels)
		for m, weights := range p.filterbank {
			var energy float64
			for k, w := range weights {
				energy += w * powerSpec[k]
			}
			frame[m] = float32(math.Log(max(energy, cfg.EnergyFloor)))
		}
		result[f] = frame
	}
	return result
}

// pcm16ToFloat converts PCM16 little-endian bytes to float64 samples on
// the int16 scale.
func pcm16ToFloat(audio []byte) []float64 {
	samples := make([]float64, len(audio)/2)
	for i := range samples {
		samples[i] = float64(int16(audio[2*i]) | int16(audio[2*i+1])<<8)
	}
	return samples
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// hammingWindow computes a Hamming window of the given length.
func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// hzToMel converts frequency in Hz to mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts mel scale to frequency in Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterbank computes triangular mel filterbank weights.
// Returns [numMels][halfFFT] weights.
func melFilterbank(numMels, fftSize, sampleRate int) [][]float64 {
	halfFFT := fftSize/2 + 1

	// Mel scale boundaries.
	melLow := hzToMel(0)
	melHigh := hzToMel(float64(sampleRate) / 2)

	// Equally spaced mel points.
	melPoints := make([]float64, numMels+2)
	for i := range melPoints {
		melPoints[i] = melLow + float64(i)*(melHigh-melLow)/float64(numMels+1)
	}

	// Convert back to Hz and then to FFT bin indices.
	binIndices := make([]int, numMels+2)
	for i := range melPoints {
		hz := melToHz(melPoints[i])
		binIndices[i] = int(math.Floor(hz * float64(fftSize) / float64(sampleRate)))
		if binIndices[i] >= halfFFT {
			binIndices[i] = halfFFT - 1
		}
	}

	// Build triangular filters.
	fb := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		fb[m] = make([]float64, halfFFT)
		left := binIndices[m]
		center := binIndices[m+1]
		right := binIndices[m+2]

		// Rising slope.
		for k := left; k <= center; k++ {
			if center > left {
				fb[m][k] = float64(k-left) / float64(center-left)
			}
		}
		// Falling slope.
		for k := center; k <= right; k++ {
			if right > center {
				fb[m][k] = float64(right-k) / float64(right-center)
			}
		}
	}
	return fb
}

// fft computes the in-place Cooley-Tukey FFT.
// The input length must be a power of 2.
func fft(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	// Butterfly operations.
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		wn := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				u := x[start+k]
				t := w * x[start+k+half]
				x[start+k] = u + t
				x[start+k+half] = u - t
				w *= wn
			}
		}
	}
}
