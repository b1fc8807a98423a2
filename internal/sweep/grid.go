package sweep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/smooth"
	"trendlab-enginev1/internal/volstop"
)

// GridSpec is the YAML description of a parameter grid. Every listed
// value of every axis is crossed with every other axis; omitted axes
// fall back to a single default value.
type GridSpec struct {
	BaseTF   int `yaml:"base_tf"`
	HigherTF int `yaml:"higher_tf"`

	Filter struct {
		Lengths     []int     `yaml:"lengths"`
		Orders      []int     `yaml:"orders"`
		Price       string    `yaml:"price"`
		Adaptive    bool      `yaml:"adaptive"`
		Smooths     []int     `yaml:"smooths"`
		SmoothModes []string  `yaml:"smooth_modes"`
		MinGammas   []float64 `yaml:"min_gammas"`
		MaxGammas   []float64 `yaml:"max_gammas"`
	} `yaml:"filter"`

	Stop struct {
		ATRLengths      []int     `yaml:"atr_lengths"`
		BaseMultipliers []float64 `yaml:"base_multipliers"`
		SmoothPeriods   []int     `yaml:"smooth_periods"`
	} `yaml:"stop"`
}

// LoadGrid parses a YAML grid spec from disk.
func LoadGrid(path string) (*GridSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sweep: read grid %s: %w", path, err)
	}
	var spec GridSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("sweep: parse grid %s: %w", path, err)
	}
	return &spec, nil
}

// Expand crosses all axes into a deterministic, stable-ordered combo list.
// Invalid combinations (per Config.Validate) are skipped with their count
// returned so callers can report them.
func (g *GridSpec) Expand() (combos []Combo, skipped int, err error) {
	price, err := model.ParsePriceMode(g.Filter.Price)
	if err != nil {
		return nil, 0, err
	}

	lengths := defaultInts(g.Filter.Lengths, 10)
	orders := defaultInts(g.Filter.Orders, 4)
	smooths := defaultInts(g.Filter.Smooths, 5)
	modes := g.Filter.SmoothModes
	if len(modes) == 0 {
		modes = []string{"median"}
	}
	minGammas := defaultFloats(g.Filter.MinGammas, 0.01)
	maxGammas := defaultFloats(g.Filter.MaxGammas, 0.99)

	atrLengths := defaultInts(g.Stop.ATRLengths, 14)
	baseMults := defaultFloats(g.Stop.BaseMultipliers, 2.0)
	smoothPeriods := defaultInts(g.Stop.SmoothPeriods, 10)

	baseTF := g.BaseTF
	if baseTF <= 0 {
		baseTF = 300
	}

	idx := 0
	for _, length := range lengths {
		for _, order := range orders {
			for _, adSmooth := range smooths {
				for _, modeName := range modes {
					mode, err := smooth.ParseMode(modeName)
					if err != nil {
						return nil, 0, err
					}
					for _, minG := range minGammas {
						for _, maxG := range maxGammas {
							fcfg := laguerre.Config{
								Length:             length,
								Order:              order,
								Price:              price,
								Adaptive:           g.Filter.Adaptive,
								AdaptiveSmooth:     adSmooth,
								AdaptiveSmoothMode: mode,
								MinGamma:           minG,
								MaxGamma:           maxG,
							}
							if fcfg.Validate() != nil {
								skipped++
								continue
							}
							for _, atrLen := range atrLengths {
								for _, baseMult := range baseMults {
									for _, sp := range smoothPeriods {
										scfg := volstop.Config{
											ATRLength:      atrLen,
											BaseMultiplier: baseMult,
											Multipliers:    [3]int{1, 2, 3},
											SmoothPeriod:   sp,
											BaseTF:         baseTF,
										}
										if scfg.Validate() != nil {
											skipped++
											continue
										}
										combos = append(combos, Combo{
											Index:  idx,
											Filter: fcfg,
											Stop:   scfg,
										})
										idx++
									}
								}
							}
						}
					}
				}
			}
		}
	}

	if len(combos) == 0 {
		return nil, skipped, fmt.Errorf("sweep: grid expanded to zero valid combinations")
	}
	return combos, skipped, nil
}

func defaultInts(v []int, def int) []int {
	if len(v) == 0 {
		return []int{def}
	}
	return v
}

func defaultFloats(v []float64, def float64) []float64 {
	if len(v) == 0 {
		return []float64{def}
	}
	return v
}
