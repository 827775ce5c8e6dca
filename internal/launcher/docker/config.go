package docker

// Config holds the configuration for containerized invocation.
type Config struct {
	// Image is the build image the CLI runs inside.
	Image string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// ProjectDir, when set, is bind-mounted into the container at /work so
	// the CLI sees the template and source tree.
	ProjectDir string
}

// DefaultConfig provides sensible defaults for a containerized build image.
func DefaultConfig() Config {
	return Config{
		Image: "public.ecr.aws/sam/build-python3.12:latest",
		// 512 MB memory limit: function builds are heavier than invokes
		MemoryLimit: 512 * 1024 * 1024,
		CPULimit:    1.0,
		PoolSize:    2,
	}
}
