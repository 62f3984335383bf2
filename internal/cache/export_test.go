package cache

// SetIfCurrentHash 供 redismock 断言写回脚本
var SetIfCurrentHash = setIfCurrent.Hash()
