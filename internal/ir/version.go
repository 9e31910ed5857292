package ir

// Version is the txprop release version reported by the CLI.
const Version = "0.1.0"
