package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo represents basic host and application information.
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	AppVersion    string    `json:"app_version"`
	NumCPU        int       `json:"num_cpu"`
	GoVersion     string    `json:"go_version"`
}

// ResourceInfo represents memory and disk usage of the host and process.
type ResourceInfo struct {
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryUsage   float64 `json:"memory_usage_percent"`
	ProcessRSS    uint64  `json:"process_rss"`
	Goroutines    int     `json:"goroutines"`
	DataDir       string  `json:"data_dir"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskUsed      uint64  `json:"disk_used"`
	DiskUsage     float64 `json:"disk_usage_percent"`
	DiskAvailable uint64  `json:"disk_available"`
}

func (c *Controller) initSystemRoutes() {
	g := c.Group.Group("/system")
	g.GET("/info", c.GetSystemInfo)
	g.GET("/resources", c.GetResourceInfo)
}

// GetSystemInfo handles GET /api/v2/system/info
func (c *Controller) GetSystemInfo(ctx echo.Context) error {
	hostInfo, err := host.InfoWithContext(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get host information", http.StatusInternalServerError)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	info := SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0).UTC(),
		AppStart:      c.startTime.UTC(),
		AppUptime:     int64(c.now().Sub(c.startTime).Seconds()),
		AppVersion:    c.Settings.Version,
		NumCPU:        runtime.NumCPU(),
		GoVersion:     runtime.Version(),
	}
	return ctx.JSON(http.StatusOK, info)
}

// GetResourceInfo handles GET /api/v2/system/resources
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	memInfo, err := mem.VirtualMemoryWithContext(reqCtx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get memory information", http.StatusInternalServerError)
	}

	dataDir := c.Settings.Main.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	usage, err := disk.UsageWithContext(reqCtx, dataDir)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get disk information", http.StatusInternalServerError)
	}

	info := ResourceInfo{
		MemoryTotal:   memInfo.Total,
		MemoryUsed:    memInfo.Used,
		MemoryUsage:   memInfo.UsedPercent,
		Goroutines:    runtime.NumGoroutine(),
		DataDir:       dataDir,
		DiskTotal:     usage.Total,
		DiskUsed:      usage.Used,
		DiskUsage:     usage.UsedPercent,
		DiskAvailable: usage.Free,
	}

	// Process stats are best effort; containers without /proc still get host data.
	if proc, err := process.NewProcessWithContext(reqCtx, int32(os.Getpid())); err == nil { //nolint:gosec // G115: pid fits in int32
		if rss, err := proc.MemoryInfoWithContext(reqCtx); err == nil {
			info.ProcessRSS = rss.RSS
		}
	}

	return ctx.JSON(http.StatusOK, info)
}
