package wikipedia

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituentsFixture = `<html><body>
<table id="constituents" class="wikitable sortable">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="/AAPL">AAPL</a></td><td>Apple Inc.</td><td>Information Technology</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td></tr>
<tr><td>MSFT</td><td>Microsoft</td><td>Information Technology</td></tr>
<tr><td>not a ticker</td><td>Broken row</td><td></td></tr>
</tbody>
</table>
<table class="wikitable"><tbody>
<tr><td>ZZZZ</td><td>Changes table, must be ignored</td></tr>
</tbody></table>
</body></html>`

func TestParseConstituents(t *testing.T) {
	symbols, err := parseConstituents(strings.NewReader(constituentsFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "BRK-B", "MSFT"}, symbols)
}

func TestParseConstituentsFallbackTable(t *testing.T) {
	html := `<html><body>
	<table class="wikitable"><tbody>
	<tr><th>Symbol</th></tr>
	<tr><td>NVDA</td></tr>
	</tbody></table>
	</body></html>`

	symbols, err := parseConstituents(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, symbols)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AAPL", "AAPL"},
		{"BRK.B", "BRK-B"},
		{"BF.B", "BF-B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbol(tt.in))
	}
}
