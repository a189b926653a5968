package trader

const Version = "v0.3.0"
