// Package syllabus 将模型解析出的课程大纲候选数据规范化为课程记录与日历事件。
//
// 本包只包含纯函数：不做 I/O，不访问数据库或外部服务。
// 组成（自底向上）：
//   - timefmt.go   时间 / 日期格式规范化
//   - classify.go  事件类型分级关键词分类
//   - weekly.go    周课表时段清洗（星期归一、全周哨兵、数量上限）
//   - payload.go   模型原始输出的宽松解析
//   - normalize.go 汇总以上步骤，产出课程草稿、事件草稿与待补充信息提示
package syllabus
