package version

const (
	AppName = "Quaver"
	Version = "0.4.0"
)
