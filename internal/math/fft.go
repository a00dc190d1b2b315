package math

import (
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// FFT computes the one-sided amplitude spectrum of the given series.
func FFT(xx []float64) *Spectrum {
	cc := fft.FFTReal(xx)

	ss := newSpectrum()
	for i, n := range cc {
		if i > len(cc)/2 {
			continue
		}
		ss.add(RNum{
			Amplitude: cmplx.Abs(n),
			Frequency: i,
		})
	}

	sort.Sort(sort.Reverse(spectrums(ss.Values)))

	return ss
}

// SpectralEnergy summarises a pixel series into the mean amplitudes of the
// given number of frequency bands, skipping the DC component.
// Hazy and cloudy tiles concentrate their energy in the low bands,
// which makes this a useful shallow feature.
func SpectralEnergy(xx []float64, bands int) []float64 {
	ss := FFT(xx)

	byFrequency := make([]RNum, 0, len(ss.Values))
	for _, r := range ss.Values {
		if r.Frequency == 0 {
			continue
		}
		byFrequency = append(byFrequency, r)
	}
	sort.Slice(byFrequency, func(i, j int) bool {
		return byFrequency[i].Frequency < byFrequency[j].Frequency
	})

	energies := make([]float64, bands)
	counts := make([]int, bands)
	for i, r := range byFrequency {
		b := i * bands / len(byFrequency)
		energies[b] += r.Amplitude
		counts[b]++
	}
	for b := range energies {
		if counts[b] > 0 {
			energies[b] /= float64(counts[b])
		}
	}
	return energies
}

// Spectrum is a collection of spectra ordered by amplitude.
type Spectrum struct {
	Values    []RNum
	Amplitude float64
}

func newSpectrum() *Spectrum {
	return &Spectrum{
		Values: make([]RNum, 0),
	}
}

func (s *Spectrum) add(r RNum) {
	s.Values = append(s.Values, r)
	s.Amplitude += r.Amplitude
}

// Mean returns the mean amplitude of the spectrum.
func (s *Spectrum) Mean() float64 {
	return s.Amplitude / float64(len(s.Values))
}

// RNum defines the attributes of one spectral component.
type RNum struct {
	Amplitude float64
	Frequency int
}

type spectrums []RNum

func (s spectrums) Len() int           { return len(s) }
func (s spectrums) Less(i, j int) bool { return s[i].Amplitude < s[j].Amplitude }
func (s spectrums) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
