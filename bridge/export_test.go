package bridge

// ResetRegisteredApp clears the process-wide builder between tests.
func ResetRegisteredApp() {
	appBuilderMu.Lock()
	defer appBuilderMu.Unlock()
	appBuilder = nil
}
