package schema

// Temperature slots.
const (
	TempEdge    = 0
	TempHotspot = 1
	TempMem     = 2
	TempVRGFX   = 3
	TempVRSoC   = 4
	TempVRMem   = 5
	TempHBM0    = 6
	TempGFX     = TempHBM0 + 4
	TempSoC     = TempGFX + 1
	TempCore0   = TempSoC + 1
	TempL30     = TempCore0 + MaxCores
	TempSkin    = TempL30 + 2

	TempSlots = TempSkin + 1
)

// Power slots.
const (
	PowerSocket = 0
	PowerCPU    = 1
	PowerSoC    = 2
	PowerGFX    = 3
	PowerCore0  = 4
	PowerIPU    = PowerCore0 + MaxCores
	PowerAPU    = PowerIPU + 1
	PowerDGPU   = PowerAPU + 1
	PowerSys    = PowerDGPU + 1

	PowerSlots = PowerSys + 1
)

// Frequency slots.
const (
	FreqGFXCLK0  = 0
	FreqSoCCLK0  = FreqGFXCLK0 + 8
	FreqUCLK     = FreqSoCCLK0 + 4
	FreqVCLK0    = FreqUCLK + 1
	FreqDCLK0    = FreqVCLK0 + 4
	FreqFCLK     = FreqDCLK0 + 4
	FreqCoreCLK0 = FreqFCLK + 1
	FreqL3CLK0   = FreqCoreCLK0 + MaxCores
	FreqVPECLK   = FreqL3CLK0 + 2
	FreqIPUCLK   = FreqVPECLK + 1
	FreqMPIPUCLK = FreqIPUCLK + 1

	FreqSlots = FreqMPIPUCLK + 1
)

var temperatureLabels = [TempSlots]string{
	"Edge", "Hotspot", "Mem",
	"VRGFX", "VRSoC", "VRMem",
	"HBM 0", "HBM 1", "HBM 2", "HBM 3",
	"GFX", "SoC",
	"Core 0", "Core 1", "Core 2", "Core 3",
	"Core 4", "Core 5", "Core 6", "Core 7",
	"Core 8", "Core 9", "Core 10", "Core 11",
	"Core 12", "Core 13", "Core 14", "Core 15",
	"L3 0", "L3 1",
	"Skin",
}

var powerLabels = [PowerSlots]string{
	"Socket", "CPU", "SoC", "GFX",
	"Core 0", "Core 1", "Core 2", "Core 3",
	"Core 4", "Core 5", "Core 6", "Core 7",
	"Core 8", "Core 9", "Core 10", "Core 11",
	"Core 12", "Core 13", "Core 14", "Core 15",
	"IPU", "APU", "dGPU", "Sys",
}

var frequencyLabels = [FreqSlots]string{
	"GFXCLK 0", "GFXCLK 1", "GFXCLK 2", "GFXCLK 3",
	"GFXCLK 4", "GFXCLK 5", "GFXCLK 6", "GFXCLK 7",
	"SoCCLK 0", "SoCCLK 1", "SoCCLK 2", "SoCCLK 3",
	"UCLK",
	"VCLK 0", "VCLK 1", "VCLK 2", "VCLK 3",
	"DCLK 0", "DCLK 1", "DCLK 2", "DCLK 3",
	"FCLK",
	"CoreCLK 0", "CoreCLK 1", "CoreCLK 2", "CoreCLK 3",
	"CoreCLK 4", "CoreCLK 5", "CoreCLK 6", "CoreCLK 7",
	"CoreCLK 8", "CoreCLK 9", "CoreCLK 10", "CoreCLK 11",
	"CoreCLK 12", "CoreCLK 13", "CoreCLK 14", "CoreCLK 15",
	"L3CLK 0", "L3CLK 1",
	"VPECLK", "IPUCLK", "MPIPUCLK",
}
