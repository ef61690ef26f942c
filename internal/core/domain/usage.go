package domain

// UsageClass is the binary usage label of an index.
type UsageClass string

const (
	UsageUnused UsageClass = "unused"
	UsageUsed   UsageClass = "used"
)

// ClassifiedIndex is an index together with its usage label.
type ClassifiedIndex struct {
	Index      IndexDescriptor    `json:"index" yaml:"index"`
	Usage      IndexUsageCounters `json:"usage" yaml:"usage"`
	Class      UsageClass         `json:"class" yaml:"class"`
	ForeignKey bool               `json:"foreign_key" yaml:"foreign_key"`
}

// ClassifyUsage labels an index Unused iff its cumulative read count is
// exactly zero and it is not the primary key. There is no threshold: any
// non-zero read may be a rare but needed path.
func ClassifyUsage(idx IndexDescriptor, usage IndexUsageCounters, foreignKey bool) ClassifiedIndex {
	class := UsageUsed
	if usage.Reads == 0 && !idx.Primary {
		class = UsageUnused
	}
	return ClassifiedIndex{
		Index:      idx,
		Usage:      usage,
		Class:      class,
		ForeignKey: foreignKey,
	}
}
