package history

import (
	"fmt"

	"github.com/dreamsxin/memory-cleaner/types"
)

const bytesPerGB = float64(1 << 30)

// ChartData 获取最近count条记录的图表数据，count<=0时返回全部
func (s *Store) ChartData(count int) (*types.ChartData, error) {
	records := s.Records()
	if count > 0 && count < len(records) {
		records = records[len(records)-count:]
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no data available")
	}

	chartData := &types.ChartData{
		Labels:   make([]string, len(records)),
		Datasets: make([]types.Dataset, 0, 3),
	}

	// 准备时间标签
	for i, record := range records {
		chartData.Labels[i] = record.Timestamp.Format("01-02 15:04:05")
	}

	chartData.Datasets = append(chartData.Datasets,
		types.Dataset{
			Label:           "Used Before (GB)",
			Data:            extractUsedBefore(records),
			BorderColor:     "rgb(255, 99, 132)",
			BackgroundColor: "rgba(255, 99, 132, 0.2)",
			Fill:            false,
		},
		types.Dataset{
			Label:           "Used After (GB)",
			Data:            extractUsedAfter(records),
			BorderColor:     "rgb(75, 192, 192)",
			BackgroundColor: "rgba(75, 192, 192, 0.2)",
			Fill:            false,
		},
		types.Dataset{
			Label:           "Freed (GB)",
			Data:            extractFreed(records),
			BorderColor:     "rgb(153, 102, 255)",
			BackgroundColor: "rgba(153, 102, 255, 0.2)",
			Fill:            true,
		},
	)

	return chartData, nil
}

// 数据提取辅助函数
func extractUsedBefore(records []types.CleanupResult) []float64 {
	result := make([]float64, len(records))
	for i, record := range records {
		result[i] = float64(record.Before.UsedBytes) / bytesPerGB
	}
	return result
}

func extractUsedAfter(records []types.CleanupResult) []float64 {
	result := make([]float64, len(records))
	for i, record := range records {
		result[i] = float64(record.After.UsedBytes) / bytesPerGB
	}
	return result
}

func extractFreed(records []types.CleanupResult) []float64 {
	result := make([]float64, len(records))
	for i, record := range records {
		result[i] = float64(record.FreedBytes) / bytesPerGB
	}
	return result
}
