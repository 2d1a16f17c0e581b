package marketing

const researchQueryTemplate = `Analyze the provided documents and extract key information about:
1. Our company's services/products
2. Key selling points
3. Relevant case studies or success stories
4. Any specific information related to %s

Format the findings in a clear, structured way.`

// Context first, question last, the way a "stuff" retrieval QA chain asks
const retrievalQATemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

const strategyTemplate = `Based on the research findings below, develop a strategy for the marketing email:

Research Findings:
%s

Target Recipient: %s
Topic Focus: %s

Create a strategic plan that includes:
1. Key messages to emphasize
2. Recommended tone and approach
3. Specific points from the research to include
4. Suggested structure for maximum impact`

const writerTemplate = `Create a compelling marketing email using the research and strategy below:

Research Findings:
%s

Email Strategy:
%s

Topic Focus: %s
Target Recipient: %s

Generate a professional email that includes:
1. Attention-grabbing subject line
2. Personalized greeting
3. Compelling body content
4. Clear call to action
5. Professional signature

Make sure to incorporate specific details from the research and follow the recommended strategy.`
