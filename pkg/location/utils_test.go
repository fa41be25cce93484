package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNmcliWiFi(t *testing.T) {
	output := "AA\\:BB\\:CC\\:DD\\:EE\\:FF:80\n" +
		"11\\:22\\:33\\:44\\:55\\:66:0\n" +
		"not-a-mac:50\n" +
		"AA\\:BB\\:CC\\:DD\\:EE\\:01:weak\n"

	aps, err := parseNmcliWiFi(output)

	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", aps[0].MACAddress)
	assert.Equal(t, -60.0, aps[0].SignalStrength)
	assert.Equal(t, "11:22:33:44:55:66", aps[1].MACAddress)
	assert.Equal(t, -100.0, aps[1].SignalStrength)
}

func TestParseMmcliCell(t *testing.T) {
	output := `modem.location.3gpp.mcc : 310
modem.location.3gpp.mnc : 260
modem.location.3gpp.lac : 0000
modem.location.3gpp.tac : 2B67
modem.location.3gpp.cid : 01A2B3C4
modem.location.gps.nmea : --`

	towers, err := parseMmcliCell(output)

	require.NoError(t, err)
	require.Len(t, towers, 1)
	assert.Equal(t, 310, towers[0].MobileCountryCode)
	assert.Equal(t, 260, towers[0].MobileNetworkCode)
	assert.Equal(t, 0x2B67, towers[0].LocationAreaCode)
	assert.Equal(t, 0x01A2B3C4, towers[0].CellID)
}

func TestParseMmcliCell_Incomplete(t *testing.T) {
	_, err := parseMmcliCell("modem.location.3gpp.mcc : 310\n")
	assert.Error(t, err)
}

func TestIsValidMAC(t *testing.T) {
	assert.True(t, isValidMAC("00:14:22:01:23:45"))
	assert.True(t, isValidMAC("FF:FF:FF:FF:FF:FF"))
	assert.False(t, isValidMAC("00:14:22:01:23"))
	assert.False(t, isValidMAC("00:14:22:01:23:4G"))
	assert.False(t, isValidMAC("001:14:22:01:23:45"))
}
