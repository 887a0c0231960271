package schema

import "fmt"

// binding ties a slot to a layout field name and an optional fallback.
type binding struct {
	slot     int
	field    string
	fallback string
}

type block []binding

func one(slot int, field string) block {
	return block{{slot: slot, field: field}}
}

func withFallback(slot int, field, fallback string) block {
	return block{{slot: slot, field: field, fallback: fallback}}
}

// array binds field[0..n) to consecutive slots starting at first.
func array(first int, field string, n int) block {
	b := make(block, n)
	for i := range b {
		b[i] = binding{slot: first + i, field: fmt.Sprintf("%s[%d]", field, i)}
	}

	return b
}

func compose(blocks ...block) block {
	var out block
	for _, b := range blocks {
		out = append(out, b...)
	}

	return out
}

// family is the channel composition shared by a run of revisions.
type family struct {
	name  string
	temp  block
	power block
	freq  block
}

func (f family) bindings(c Category) block {
	switch c {
	case Temperature:
		return f.temp
	case Power:
		return f.power
	default:
		return f.freq
	}
}

var (
	tempV1Common1 = compose(
		one(TempHotspot, "temperature_hotspot"),
		one(TempMem, "temperature_mem"),
		one(TempVRSoC, "temperature_vrsoc"),
	)
	tempV1Common2 = compose(
		one(TempEdge, "temperature_edge"),
		one(TempVRGFX, "temperature_vrgfx"),
		one(TempVRMem, "temperature_vrmem"),
	)
	tempV1_0 = compose(tempV1Common1, tempV1Common2)
	tempV1_1 = compose(tempV1_0, array(TempHBM0, "temperature_hbm", 4))

	powerV1_0 = one(PowerSocket, "average_socket_power")
	powerV1_4 = one(PowerSocket, "curr_socket_power")

	freqV1_0 = compose(
		withFallback(FreqGFXCLK0, "current_gfxclk", "average_gfxclk_frequency"),
		withFallback(FreqSoCCLK0, "current_socclk", "average_socclk_frequency"),
		withFallback(FreqUCLK, "current_uclk", "average_uclk_frequency"),
		withFallback(FreqVCLK0, "current_vclk0", "average_vclk0_frequency"),
		withFallback(FreqVCLK0+1, "current_vclk1", "average_vclk1_frequency"),
		withFallback(FreqDCLK0, "current_dclk0", "average_dclk0_frequency"),
		withFallback(FreqDCLK0+1, "current_dclk1", "average_dclk1_frequency"),
	)
	freqV1_4 = compose(
		array(FreqGFXCLK0, "current_gfxclk", 8),
		array(FreqSoCCLK0, "current_socclk", 4),
		one(FreqUCLK, "current_uclk"),
		array(FreqVCLK0, "current_vclk0", 4),
		array(FreqDCLK0, "current_dclk0", 4),
	)

	tempV2 = compose(
		one(TempGFX, "temperature_gfx"),
		one(TempSoC, "temperature_soc"),
		array(TempCore0, "temperature_core", 8),
		array(TempL30, "temperature_l3", 2),
	)
	powerV2 = compose(
		one(PowerSocket, "average_socket_power"),
		one(PowerCPU, "average_cpu_power"),
		one(PowerSoC, "average_soc_power"),
		one(PowerGFX, "average_gfx_power"),
		array(PowerCore0, "average_core_power", 8),
	)
	freqV2 = compose(
		withFallback(FreqGFXCLK0, "current_gfxclk", "average_gfxclk_frequency"),
		withFallback(FreqSoCCLK0, "current_socclk", "average_socclk_frequency"),
		withFallback(FreqUCLK, "current_uclk", "average_uclk_frequency"),
		withFallback(FreqFCLK, "current_fclk", "average_fclk_frequency"),
		withFallback(FreqVCLK0, "current_vclk", "average_vclk_frequency"),
		withFallback(FreqDCLK0, "current_dclk", "average_dclk_frequency"),
		array(FreqCoreCLK0, "current_coreclk", 8),
		array(FreqL3CLK0, "current_l3clk", 2),
	)

	tempV3 = compose(
		one(TempGFX, "temperature_gfx"),
		one(TempSoC, "temperature_soc"),
		array(TempCore0, "temperature_core", MaxCores),
		one(TempSkin, "temperature_skin"),
	)
	powerV3 = compose(
		one(PowerSocket, "average_socket_power"),
		one(PowerIPU, "average_ipu_power"),
		one(PowerAPU, "average_apu_power"),
		one(PowerGFX, "average_gfx_power"),
		one(PowerDGPU, "average_dgpu_power"),
		one(PowerCPU, "average_all_core_power"),
		array(PowerCore0, "average_core_power", MaxCores),
		one(PowerSys, "average_sys_power"),
	)
	freqV3 = compose(
		one(FreqGFXCLK0, "average_gfxclk_frequency"),
		one(FreqSoCCLK0, "average_socclk_frequency"),
		one(FreqVPECLK, "average_vpeclk_frequency"),
		one(FreqIPUCLK, "average_ipuclk_frequency"),
		one(FreqFCLK, "average_fclk_frequency"),
		one(FreqVCLK0, "average_vclk_frequency"),
		one(FreqUCLK, "average_uclk_frequency"),
		array(FreqCoreCLK0, "current_coreclk", MaxCores),
		one(FreqMPIPUCLK, "average_mpipu_frequency"),
	)
)

var (
	familyV1_0 = family{name: "v1.0", temp: tempV1_0, power: powerV1_0, freq: freqV1_0}
	familyV1_1 = family{name: "v1.1", temp: tempV1_1, power: powerV1_0, freq: freqV1_0}
	familyV1_4 = family{name: "v1.4", temp: tempV1Common1, power: powerV1_4, freq: freqV1_4}
	familyV2   = family{name: "v2", temp: tempV2, power: powerV2, freq: freqV2}
	familyV3   = family{name: "v3", temp: tempV3, power: powerV3, freq: freqV3}
)

// lines holds, per format revision, the family of each content revision.
var lines = map[uint8][]family{
	1: {
		familyV1_0,
		familyV1_1, familyV1_1, familyV1_1,
		familyV1_4, familyV1_4, familyV1_4, familyV1_4, familyV1_4,
	},
	2: {familyV2, familyV2, familyV2, familyV2, familyV2},
	3: {familyV3},
}
