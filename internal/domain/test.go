package domain

// Assignment pairs a test file with the environment it runs under
type Assignment struct {
	File        string // Path to the test file
	Environment string // Resolved environment name
}

// Group is an environment with the files assigned to it, in input order
type Group struct {
	Environment string
	Files       []string
}
