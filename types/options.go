package types

// 外部清理工具支持的命令标志
const (
	FlagModifiedPageList     = "modifiedpagelist"
	FlagStandbyList          = "standbylist"
	FlagPriority0StandbyList = "priority0standbylist"
	FlagWorkingSets          = "workingsets"
)

// FlagDescriptions maps tool flags to human readable descriptions
var FlagDescriptions = map[string]string{
	FlagModifiedPageList:     "Clear modified page list",
	FlagStandbyList:          "Clear standby list",
	FlagPriority0StandbyList: "Clear priority 0 standby list",
	FlagWorkingSets:          "Clear working sets",
}

// CleanupOptions 清理选项，每个字段对应外部工具的一个标志
type CleanupOptions struct {
	ModifiedPageList     bool `json:"modified_page_list" yaml:"modified_page_list"`
	StandbyList          bool `json:"standby_list" yaml:"standby_list"`
	Priority0StandbyList bool `json:"priority0_standby_list" yaml:"priority0_standby_list"`
	WorkingSets          bool `json:"working_sets" yaml:"working_sets"`
}

// None returns true if no flag is selected
func (o CleanupOptions) None() bool {
	return !o.ModifiedPageList && !o.StandbyList && !o.Priority0StandbyList && !o.WorkingSets
}

// All returns true if every flag is selected
func (o CleanupOptions) All() bool {
	return o.ModifiedPageList && o.StandbyList && o.Priority0StandbyList && o.WorkingSets
}

// Args 按固定顺序生成外部工具的命令行参数。
// 同样的选项总是产生同样的参数序列：
// modifiedpagelist -> standbylist -> priority0standbylist -> workingsets
func (o CleanupOptions) Args() []string {
	var args []string
	if o.ModifiedPageList {
		args = append(args, FlagModifiedPageList)
	}
	if o.StandbyList {
		args = append(args, FlagStandbyList)
	}
	if o.Priority0StandbyList {
		args = append(args, FlagPriority0StandbyList)
	}
	if o.WorkingSets {
		args = append(args, FlagWorkingSets)
	}
	return args
}
