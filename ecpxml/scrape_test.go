// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package ecpxml

import (
	"testing"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceInfoXML = `<?xml version="1.0" encoding="UTF-8" ?>
<device-info>
	<udn>29780004-a80c-1089-8095-d83134a5b4c8</udn>
	<serial-number>X00400123456</serial-number>
	<friendly-device-name>Living Room</friendly-device-name>
	<network-type>wireless</network-type>
	<wifi-mac>AA:BB:CC:DD:EE:FF</wifi-mac>
	<supports-ethernet>false</supports-ethernet>
	<power-mode>PowerOn</power-mode>
	<empty-tag></empty-tag>
</device-info>
`

func TestDeviceInfo(t *testing.T) {
	info, err := DeviceInfo(deviceInfoXML)
	require.NoError(t, err)

	assert.Equal(t, "Living Room", info["friendly-device-name"])
	assert.Equal(t, "wireless", info["network-type"])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", info["wifi-mac"])
	assert.Equal(t, "false", info["supports-ethernet"])
	assert.Equal(t, "PowerOn", info["power-mode"])

	assert.NotContains(t, info, "device-info")
	assert.NotContains(t, info, "?xml")
	assert.NotContains(t, info, "empty-tag")
	assert.Len(t, info, 7)
}

func TestFlatLaterValuesOverwrite(t *testing.T) {
	info, err := Flat(`<root><a>first</a><b>x</b><a>second</a></root>`, "root")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "second", "b": "x"}, info)
}

func TestFlatUnescapesEntities(t *testing.T) {
	info, err := DeviceInfo(`<device-info><friendly-device-name>Tom &amp; Jerry's TV</friendly-device-name></device-info>`)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry's TV", info["friendly-device-name"])
}

func TestFlatEmptyBody(t *testing.T) {
	info, err := DeviceInfo("")
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestMalformedXML(t *testing.T) {
	inputs := []string{
		`<device-info><wifi-mac>AA</device-info>`,
		`<device-info><power-mode>On</power-mode>`,
		`<apps><app id="1">x</apps>`,
	}

	for _, input := range inputs {
		_, err := DeviceInfo(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.IsParseError(err))

		_, err = Apps(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.IsParseError(err))
	}
}

func TestText(t *testing.T) {
	text, found, err := Text(deviceInfoXML, "power-mode")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "PowerOn", text)

	_, found, err = Text(deviceInfoXML, "missing-tag")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = Text(deviceInfoXML, "empty-tag")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTextStopsAtFirstMatch(t *testing.T) {
	text, found, err := Text(`<r><power-mode>Ready</power-mode><power-mode>Other</power-mode></r>`, "power-mode")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ready", text)
}

func TestTextMalformedAfterMatchIsIgnored(t *testing.T) {
	text, found, err := Text(`<r><power-mode>DisplayOff</power-mode><broken>`, "power-mode")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "DisplayOff", text)
}

func TestApps(t *testing.T) {
	body := "<apps><app id=\"12\" type=\"appl\" version=\"1.2.3\">Netflix\u00a0HD</app></apps>"

	apps, err := Apps(body)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, AppElement{ID: "12", Type: "appl", Version: "1.2.3", Name: "NetflixHD"}, apps[0])
}

func TestAppsOrderAndAttributeLookupByName(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8" ?>
<apps>
	<app id="tvinput.hdmi1" type="tvin" version="1.0.0">HDMI 1</app>
	<app version="4.2.1" type="appl" id="837">YouTube</app>
	<app id="2285" subtype="ndka" type="appl" version="6.54.3">Hulu</app>
	<app id="551012" type="appl" version="1.0"/>
</apps>`

	apps, err := Apps(body)
	require.NoError(t, err)
	require.Len(t, apps, 4)

	assert.Equal(t, AppElement{ID: "tvinput.hdmi1", Type: "tvin", Version: "1.0.0", Name: "HDMI 1"}, apps[0])
	assert.Equal(t, AppElement{ID: "837", Type: "appl", Version: "4.2.1", Name: "YouTube"}, apps[1])
	assert.Equal(t, AppElement{ID: "2285", Type: "appl", Version: "6.54.3", Name: "Hulu"}, apps[2])
	assert.Equal(t, AppElement{ID: "551012", Type: "appl", Version: "1.0"}, apps[3])
}

func TestAppsIgnoresOtherElements(t *testing.T) {
	apps, err := Apps(`<apps><note>hello</note><app id="1" type="appl" version="1">One</app></apps>`)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "One", apps[0].Name)
}

func TestAppsEmpty(t *testing.T) {
	apps, err := Apps(`<apps></apps>`)
	require.NoError(t, err)
	assert.Empty(t, apps)
}
