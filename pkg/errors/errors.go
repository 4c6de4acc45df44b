package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStoreWrite 持久化写入失败（不重试：无幂等键，重试可能产生重复课程）
var ErrStoreWrite = errors.New("数据写入失败")
