package version

// Version is the sbomgen release version, overridden at build time via
// -ldflags "-X sbomgen/version.Version=...".
var Version = "0.3.0"
