package assets

// Names of the embedded styles.
const (
	StyleBase   = "base"
	StyleScreen = "screen"
	StylePrint  = "print"
)

var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a CSS file by name using the default embedded loader.
// The name should not include the .css extension or path components.
// Returns ErrStyleNotFound if the style does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// Required lists the styles every document needs.
var Required = []string{StyleBase, StylePrint, StyleScreen}

// Styles lists the embedded style names in sorted order.
func Styles() []string {
	return defaultLoader.Styles()
}
